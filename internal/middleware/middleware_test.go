package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKeys struct {
	key string
	err error
}

func (s stubKeys) IsValid(_ context.Context, candidate string) (bool, error) {
	return candidate == s.key, s.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return log
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(stubKeys{key: "secret"}, quietLogger())(okHandler)

	cases := []struct {
		name, path, header string
		want               int
	}{
		{"health skips auth", "/health", "", http.StatusOK},
		{"missing header", "/v1/scans", "", http.StatusUnauthorized},
		{"empty bearer", "/v1/scans", "Bearer ", http.StatusUnauthorized},
		{"wrong key", "/v1/scans", "Bearer other", http.StatusUnauthorized},
		{"bearer key", "/v1/scans", "Bearer secret", http.StatusOK},
		{"raw key", "/v1/scans", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAPIKeyAuth_lookupFailure(t *testing.T) {
	h := APIKeyAuth(stubKeys{err: errors.New("db down")}, quietLogger())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/scans", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_requestID(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	var seen string
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/scans", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/scans", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(NewRateLimiter(ctx, 2, 1))(okHandler)

	call := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("/v1/scans", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("/v1/scans", "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("/v1/scans", "10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("/v1/scans", "10.0.0.2:1000"))
	assert.Equal(t, http.StatusOK, call("/health", "10.0.0.1:1003"))
}

func TestRateLimiter_evictsIdleBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 1, 1)

	require.True(t, rl.Allow("a"))
	rl.evict(time.Now().Add(time.Hour), 10*time.Minute)

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.buckets)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("unreachable") }

func TestHealthHandler_unhealthy(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{"database": &DatabaseHealthChecker{DB: failingPinger{}}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestMetrics_Track(t *testing.T) {
	m := NewMetrics()
	h := m.Track(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.EqualValues(t, 2, m.RequestsTotal.Load())
	assert.EqualValues(t, 1, m.RequestsSuccess.Load())
	assert.EqualValues(t, 1, m.RequestsFailed.Load())
	assert.Zero(t, m.RequestsInProgress.Load())
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateURL("https://example.com/login"))
	assert.NoError(t, ValidateURL("http://10.0.0.5:8080"))
	assert.Error(t, ValidateURL("ftp://example.com"))
	assert.Error(t, ValidateURL(""))

	assert.NoError(t, ValidateMethod(""))
	assert.NoError(t, ValidateMethod("POST"))
	assert.Error(t, ValidateMethod("get;"))

	assert.NoError(t, ValidateIPRange("8.8.8.0", "24"))
	assert.NoError(t, ValidateIPRange("2001:db8::", "64"))
	assert.NoError(t, ValidateIPRange("10.0.0.1", ""))
	assert.Error(t, ValidateIPRange("10.0.0.1", "33"))
	assert.Error(t, ValidateIPRange("example.com", "24"))

	assert.NoError(t, ValidateAppID("com.example.app"))
	assert.Error(t, ValidateAppID("noDots"))

	assert.NoError(t, ValidateAgentKey("agent/ostorlab/nmap"))
	assert.Error(t, ValidateAgentKey("nmap"))

	assert.NoError(t, ValidatePath("/tmp/app.apk"))
	assert.Error(t, ValidatePath("/tmp/$(rm).apk"))

	assert.Equal(t, "title", SanitizeString("  ti\x00tle\x07 "))

	id, err := ValidateScanID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	_, err = ValidateScanID("-1")
	assert.Error(t, err)

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 1, ValidatePage(-3))
}
