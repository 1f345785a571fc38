package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores process level counters of the local API
type Metrics struct {
	RequestsTotal          atomic.Uint64
	RequestsInProgress     atomic.Int64
	RequestsSuccess        atomic.Uint64
	RequestsFailed         atomic.Uint64
	ScansRegistered        atomic.Uint64
	VulnerabilitiesWritten atomic.Uint64
	StartTime              time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// Snapshot returns the current values
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":          m.RequestsTotal.Load(),
		"requests_in_progress":    m.RequestsInProgress.Load(),
		"requests_success":        m.RequestsSuccess.Load(),
		"requests_failed":         m.RequestsFailed.Load(),
		"scans_registered":        m.ScansRegistered.Load(),
		"vulnerabilities_written": m.VulnerabilitiesWritten.Load(),
		"uptime_seconds":          time.Since(m.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes": mem.Alloc,
			"sys_bytes":   mem.Sys,
			"num_gc":      mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Track counts requests and their outcome
func (m *Metrics) Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
