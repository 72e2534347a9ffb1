// Package api exposes the quality engine over HTTP. Scan endpoints run
// synchronously and return the report inline; every run is also parked
// in the report registry (and persisted) so it can be re-fetched by id.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gigboard/directory-cli/internal/directory"
	"github.com/gigboard/directory-cli/internal/model"
	"github.com/gigboard/directory-cli/internal/quality"
)

// Server wires the store, the engine, and the report registry into an
// HTTP handler.
type Server struct {
	store     directory.Store
	registry  *quality.Registry
	threshold float64
	limiter   *rate.Limiter
}

// Options configures a Server.
type Options struct {
	DuplicateThreshold float64
	RateLimitRPS       float64
	RateBurst          int
}

// NewServer builds a Server around the given store and registry.
func NewServer(store directory.Store, registry *quality.Registry, opts Options) *Server {
	threshold := opts.DuplicateThreshold
	if threshold <= 0 {
		threshold = quality.DefaultDuplicateThreshold
	}
	rps := opts.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 20
	}
	return &Server{
		store:     store,
		registry:  registry,
		threshold: threshold,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)
	r.Get("/companies", s.handleListCompanies)
	r.Post("/scan/duplicates", s.handleScanDuplicates)
	r.Post("/scan/fraud", s.handleScanFraud)
	r.Post("/merge", s.handleMerge)
	r.Get("/reports", s.handleListReports)
	r.Get("/reports/{id}", s.handleGetReport)

	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check store ping failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		zap.L().Error("list companies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list companies failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"companies": companies,
		"total":     len(companies),
	})
}

type scanRequest struct {
	Threshold float64 `json:"threshold,omitempty"`
	DryRun    bool    `json:"dry_run,omitempty"`
}

// decodeScanRequest tolerates an empty body so POST without JSON works.
func decodeScanRequest(r *http.Request) (scanRequest, error) {
	var req scanRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return req, nil
	}
	return req, err
}

// resolveThreshold applies the server default when the request leaves
// the threshold unset, and rejects values outside (0, 1].
func (s *Server) resolveThreshold(req scanRequest) (float64, error) {
	if req.Threshold == 0 {
		return s.threshold, nil
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return 0, eris.Errorf("threshold must be between 0 and 1, got %v", req.Threshold)
	}
	return req.Threshold, nil
}

func (s *Server) handleScanDuplicates(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScanRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	threshold, err := s.resolveThreshold(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		zap.L().Error("duplicate scan list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list companies failed")
		return
	}

	report := quality.NewClusterer(threshold).Cluster(companies)
	run, err := s.recordRun(r, model.ScanDuplicates, report.TotalCompanies, report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save scan run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleScanFraud(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		zap.L().Error("fraud scan list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list companies failed")
		return
	}

	report := quality.NewScanner().Scan(companies)
	run, err := s.recordRun(r, model.ScanFraud, report.TotalCompanies, report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save scan run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScanRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	threshold, err := s.resolveThreshold(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		zap.L().Error("merge list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list companies failed")
		return
	}

	dupes := quality.NewClusterer(threshold).Cluster(companies)
	if req.DryRun {
		writeJSON(w, http.StatusOK, dupes)
		return
	}

	report := quality.NewMerger(s.store).MergeAll(r.Context(), dupes.DuplicateGroups)

	run, err := s.recordRun(r, model.ScanMerge, dupes.TotalCompanies, report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save scan run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if run, ok := s.registry.Get(id); ok {
		writeJSON(w, http.StatusOK, run)
		return
	}

	run, err := s.store.GetScanRun(r.Context(), id)
	if err != nil {
		zap.L().Error("get scan run failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get scan run failed")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	kind := model.ScanKind(r.URL.Query().Get("kind"))
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListScanRuns(r.Context(), kind, limit)
	if err != nil {
		zap.L().Error("list scan runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list scan runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": runs,
		"total":   len(runs),
	})
}

// recordRun registers a finished report in the registry and persists it.
func (s *Server) recordRun(r *http.Request, kind model.ScanKind, total int, report any) (*model.ScanRun, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		zap.L().Error("marshal report failed", zap.Error(err))
		return nil, err
	}

	run := &model.ScanRun{
		ID:             uuid.NewString(),
		Kind:           kind,
		TotalCompanies: total,
		Report:         payload,
		CreatedAt:      time.Now().UTC(),
	}
	s.registry.Put(run)

	if err := s.store.SaveScanRun(r.Context(), run); err != nil {
		zap.L().Error("save scan run failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	return run, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, eris.New("limit must be positive")
	}
	return n, nil
}
