package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	appscans "github.com/bryanwahyu/automaton-store/internal/application/scans"
	"github.com/bryanwahyu/automaton-store/internal/domain/agents"
	"github.com/bryanwahyu/automaton-store/internal/domain/assets"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
	"github.com/bryanwahyu/automaton-store/internal/domain/vulnerabilities"
	"github.com/bryanwahyu/automaton-store/internal/infra/db"
	"github.com/bryanwahyu/automaton-store/internal/middleware"
)

// errBadRequest marks request bodies or parameters that failed validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Deps wires the router. Limiter and Metrics are optional.
type Deps struct {
	Scans          *appscans.Service
	Store          *db.Store
	Metrics        *middleware.Metrics
	Limiter        *middleware.RateLimiter
	AllowedOrigins []string
	Log            *logrus.Logger
}

type Router struct {
	scansSvc *appscans.Service
	store    *db.Store
	metrics  *middleware.Metrics
	log      *logrus.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	r := &Router{scansSvc: d.Scans, store: d.Store, metrics: d.Metrics, log: d.Log}
	mux := chi.NewRouter()

	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(d.Log))
	mux.Use(d.Metrics.Track)
	if len(d.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: d.Store},
	}))

	mux.Route("/v1", func(rt chi.Router) {
		if d.Limiter != nil {
			rt.Use(middleware.RateLimit(d.Limiter))
		}
		rt.Use(middleware.APIKeyAuth(d.Store.APIKeys(), d.Log))

		rt.Get("/scans", r.wrap(r.handleListScans))
		rt.Post("/scans", r.wrap(r.handleRegisterScan))
		rt.Get("/scans/{id}", r.wrap(r.handleGetScan))
		rt.Put("/scans/{id}/progress", r.wrap(r.handleMarkProgress))
		rt.Get("/scans/{id}/statuses", r.wrap(r.handleListStatuses))
		rt.Post("/scans/{id}/statuses", r.wrap(r.handleRecordStatus))
		rt.Get("/scans/{id}/assets", r.wrap(r.handleListAssets))
		rt.Get("/scans/{id}/vulnerabilities", r.wrap(r.handleListVulnerabilities))
		rt.Post("/scans/{id}/vulnerabilities", r.wrap(r.handleRecordVulnerability))
		rt.Get("/scans/{id}/summary", r.wrap(r.handleSummary))
		rt.Get("/agent-groups", r.wrap(r.handleAgentGroups))
		rt.Get("/metrics", d.Metrics.Handler)
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, errBadRequest),
			errors.Is(err, appscans.ErrInvalidCommand),
			errors.Is(err, vulnerabilities.ErrInvalidRiskRating):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, storage.ErrForeignKeyViolation), errors.Is(err, storage.ErrIntegrity):
			http.Error(w, "conflict", http.StatusConflict)
		default:
			r.log.WithError(err).WithField("request_id", middleware.GetRequestID(req.Context())).Error("request failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func scanID(req *http.Request) (int64, error) {
	id, err := middleware.ValidateScanID(chi.URLParam(req, "id"))
	if err != nil {
		return 0, badRequest("%v", err)
	}
	return id, nil
}

// GET /v1/scans?page=&page_size=
func (r *Router) handleListScans(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.store.Scans().Paginate(req.Context(), middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	if list.HasNext() {
		w.Header().Set("X-Next-Page", strconv.Itoa(list.Page+1))
	}
	return writeJSON(w, http.StatusOK, list)
}

type argumentBody struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Value       json.RawMessage `json:"value"`
}

type agentGroupBody struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	AssetTypes  []string `json:"asset_types"`
	Agents      []struct {
		Key  string         `json:"key"`
		Args []argumentBody `json:"args"`
	} `json:"agents"`
}

// maskValue accepts a prefix length written either as a JSON number or a string.
type maskValue string

func (m *maskValue) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*m = maskValue(n.String())
		return nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("mask must be a number or a string: %w", err)
	}
	if s != nil {
		*m = maskValue(*s)
	}
	return nil
}

type ipRangeBody struct {
	Host string    `json:"host"`
	Mask maskValue `json:"mask"`
}

type assetBody struct {
	Type            string        `json:"type"`
	Networks        []ipRangeBody `json:"networks"`
	Links           []assets.Link `json:"links"`
	PackageName     string        `json:"package_name"`
	BundleID        string        `json:"bundle_id"`
	ApplicationName string        `json:"application_name"`
	Path            string        `json:"path"`
}

func (b agentGroupBody) definition() (*agents.GroupDefinition, error) {
	def := &agents.GroupDefinition{
		Name:        middleware.SanitizeString(b.Name),
		Description: middleware.SanitizeString(b.Description),
		AssetTypes:  b.AssetTypes,
	}
	if def.Name == "" {
		return nil, badRequest("agent_group.name is required")
	}
	for _, a := range b.Agents {
		if err := middleware.ValidateAgentKey(a.Key); err != nil {
			return nil, badRequest("%v", err)
		}
		ad := agents.AgentDefinition{Key: a.Key}
		for _, arg := range a.Args {
			if arg.Name == "" {
				return nil, badRequest("argument of %s has no name", a.Key)
			}
			ad.Args = append(ad.Args, agents.ArgumentDefinition{
				Name:        arg.Name,
				Type:        arg.Type,
				Description: arg.Description,
				Value:       []byte(arg.Value),
			})
		}
		def.Agents = append(def.Agents, ad)
	}
	return def, nil
}

func (b assetBody) definition() (assets.Definition, error) {
	switch assets.Kind(strings.ToLower(b.Type)) {
	case assets.KindNetwork:
		ranges := make([]assets.IPRange, 0, len(b.Networks))
		for _, rg := range b.Networks {
			if err := middleware.ValidateIPRange(rg.Host, string(rg.Mask)); err != nil {
				return nil, badRequest("%v", err)
			}
			ranges = append(ranges, assets.IPRange{Host: rg.Host, Mask: string(rg.Mask)})
		}
		return assets.NetworkDefinition{Ranges: ranges}, nil
	case assets.KindUrls:
		for _, l := range b.Links {
			if err := middleware.ValidateURL(l.URL); err != nil {
				return nil, badRequest("%v", err)
			}
			if err := middleware.ValidateMethod(l.Method); err != nil {
				return nil, badRequest("%v", err)
			}
		}
		return assets.UrlsDefinition{Links: b.Links}, nil
	case assets.KindAndroidStore:
		if err := middleware.ValidateAppID(b.PackageName); err != nil {
			return nil, badRequest("%v", err)
		}
		return assets.AndroidStoreDefinition{PackageName: b.PackageName, ApplicationName: b.ApplicationName}, nil
	case assets.KindIosStore:
		if err := middleware.ValidateAppID(b.BundleID); err != nil {
			return nil, badRequest("%v", err)
		}
		return assets.IosStoreDefinition{BundleID: b.BundleID, ApplicationName: b.ApplicationName}, nil
	case assets.KindAndroidFile:
		if err := middleware.ValidatePath(b.Path); err != nil {
			return nil, badRequest("%v", err)
		}
		return assets.AndroidFileDefinition{PackageName: b.PackageName, Path: b.Path}, nil
	case assets.KindIosFile:
		if err := middleware.ValidatePath(b.Path); err != nil {
			return nil, badRequest("%v", err)
		}
		return assets.IosFileDefinition{BundleID: b.BundleID, Path: b.Path}, nil
	}
	return nil, badRequest("unknown asset type %q", b.Type)
}

// POST /v1/scans
// Body: {"title", "asset", "agent_group": {...}, "assets": [{"type": "urls", "links": [...]}]}
func (r *Router) handleRegisterScan(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Title      string          `json:"title"`
		Asset      string          `json:"asset"`
		AgentGroup *agentGroupBody `json:"agent_group"`
		Assets     []assetBody     `json:"assets"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}

	cmd := appscans.RegisterScanCommand{
		Title:      middleware.SanitizeString(body.Title),
		AssetLabel: middleware.SanitizeString(body.Asset),
	}
	if body.AgentGroup != nil {
		def, err := body.AgentGroup.definition()
		if err != nil {
			return err
		}
		cmd.Group = def
	}
	for _, a := range body.Assets {
		def, err := a.definition()
		if err != nil {
			return err
		}
		cmd.Assets = append(cmd.Assets, def)
	}

	res, err := r.scansSvc.RegisterScan(req.Context(), cmd)
	if err != nil {
		return err
	}
	r.metrics.ScansRegistered.Add(1)
	return writeJSON(w, http.StatusCreated, res)
}

// GET /v1/scans/{id}
func (r *Router) handleGetScan(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	scan, err := r.store.Scans().Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, scan)
}

// PUT /v1/scans/{id}/progress
// Body: {"progress": "IN_PROGRESS"}
func (r *Router) handleMarkProgress(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	var body struct {
		Progress string `json:"progress"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	if err := r.scansSvc.MarkProgress(req.Context(), id, body.Progress); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/scans/{id}/statuses
func (r *Router) handleListStatuses(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	list, err := r.store.ScanStatuses().ListByScan(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/scans/{id}/statuses
// Body: {"key": "progress", "value": "running"}
func (r *Router) handleRecordStatus(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	var body struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	st, err := r.scansSvc.RecordStatus(req.Context(), id, body.Key, body.Value)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, st)
}

// GET /v1/scans/{id}/assets
func (r *Router) handleListAssets(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	list, err := r.store.Assets().ListByScan(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/scans/{id}/vulnerabilities
func (r *Router) handleListVulnerabilities(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	list, err := r.store.Vulnerabilities().ListByScan(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/scans/{id}/vulnerabilities
// Body: vulnerability fields, "location" as reported by the agent, "references".
func (r *Router) handleRecordVulnerability(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	var body struct {
		Title            string                      `json:"title"`
		ShortDescription string                      `json:"short_description"`
		Description      string                      `json:"description"`
		Recommendation   string                      `json:"recommendation"`
		TechnicalDetail  string                      `json:"technical_detail"`
		RiskRating       string                      `json:"risk_rating"`
		CVSSV3Vector     string                      `json:"cvss_v3_vector"`
		DNA              string                      `json:"dna"`
		Location         vulnerabilities.Location    `json:"location"`
		References       []vulnerabilities.Reference `json:"references"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	v, err := r.scansSvc.RecordVulnerability(req.Context(), vulnerabilities.NewVulnerability{
		Title:            body.Title,
		ShortDescription: body.ShortDescription,
		Description:      body.Description,
		Recommendation:   body.Recommendation,
		TechnicalDetail:  body.TechnicalDetail,
		RiskRating:       body.RiskRating,
		CVSSV3Vector:     body.CVSSV3Vector,
		DNA:              body.DNA,
		Location:         body.Location,
		ScanID:           id,
		References:       body.References,
	})
	if err != nil {
		return err
	}
	r.metrics.VulnerabilitiesWritten.Add(1)
	return writeJSON(w, http.StatusCreated, v)
}

// GET /v1/scans/{id}/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	id, err := scanID(req)
	if err != nil {
		return err
	}
	summary, err := r.scansSvc.Summary(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// GET /v1/agent-groups?asset_type=WEB
func (r *Router) handleAgentGroups(w http.ResponseWriter, req *http.Request) error {
	assetType := req.URL.Query().Get("asset_type")
	var (
		groups []*agents.Group
		err    error
	)
	if assetType == "" {
		groups, err = r.store.AgentGroups().List(req.Context())
	} else {
		groups, err = r.store.AgentGroups().GetByAssetType(req.Context(), assetType)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, groups)
}
