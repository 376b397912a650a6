package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mapdesc_service/internal/core"
	"mapdesc_service/internal/core/spatial"
	"mapdesc_service/internal/domain/model"
	"mapdesc_service/internal/domain/repository"
)

// maxBodyBytes bounds uploaded raw documents.
const maxBodyBytes = 64 << 20

// RunReader reads recorded runs back.
type RunReader interface {
	Get(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context, limit int) ([]*model.Run, error)
}

type Handler struct {
	service    *core.DescriptionService
	runs       RunReader
	maxAreaKm2 float64
	log        *zap.Logger
}

// NewHandler builds the API. runs may be nil when no run store is configured.
func NewHandler(service *core.DescriptionService, runs RunReader, maxAreaKm2 float64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, runs: runs, maxAreaKm2: maxAreaKm2, log: logger}
}

// Routes builds the chi router with all endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/describe", h.Describe)
		r.Post("/classify", h.Classify)
		r.Get("/ruleset", h.Ruleset)
		r.Post("/fetch", h.Fetch)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Describe accepts a raw document and returns the map content, or its text
// rendering with ?format=text.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	var doc model.RawDocument
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		http.Error(w, "Invalid raw document", http.StatusBadRequest)
		return
	}

	res, run, err := h.service.Run(r.Context(), "api:describe", &doc)
	if err != nil {
		h.log.Error("describe failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Error describing map: %v", err), http.StatusInternalServerError)
		return
	}
	h.writeResult(w, r, res, run)
}

type ClassifyRequest struct {
	Feature  *model.Feature `json:"feature"`
	Boundary *model.BBox    `json:"boundary,omitempty"`
}

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Feature == nil || req.Feature.ElementType == "" {
		http.Error(w, "Feature with elementType is required", http.StatusBadRequest)
		return
	}

	cls := h.service.Classify(req.Feature, req.Boundary)
	if cls == nil {
		http.Error(w, "Feature is not classified", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cls)
}

type SubclassInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type ClassInfo struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	Subclasses []SubclassInfo `json:"subclasses"`
}

type RulesetResponse struct {
	Version string          `json:"version,omitempty"`
	Options map[string]bool `json:"options"`
	Classes []ClassInfo     `json:"classes"`
	Rules   int             `json:"rules"`
}

func (h *Handler) Ruleset(w http.ResponseWriter, _ *http.Request) {
	rs := h.service.Ruleset()
	resp := RulesetResponse{
		Version: rs.Version,
		Options: rs.Options,
		Classes: make([]ClassInfo, 0, len(rs.Classes)),
		Rules:   len(rs.Rules),
	}
	for _, c := range rs.Classes {
		info := ClassInfo{Key: c.Key, Name: c.Name, Subclasses: make([]SubclassInfo, 0, len(c.Subclasses))}
		for _, s := range c.Subclasses {
			info.Subclasses = append(info.Subclasses, SubclassInfo{Key: s.Key, Name: s.Name})
		}
		resp.Classes = append(resp.Classes, info)
	}
	writeJSON(w, http.StatusOK, resp)
}

type FetchRequest struct {
	BBox string `json:"bbox"` // "lat1,lon1,lat2,lon2"
}

func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BBox == "" {
		http.Error(w, "BBox is required", http.StatusBadRequest)
		return
	}
	bound, err := repository.ParseBBox(req.BBox)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid bbox: %v", err), http.StatusBadRequest)
		return
	}
	if area := spatial.BoundAreaKm2(bound); h.maxAreaKm2 > 0 && area > h.maxAreaKm2 {
		http.Error(w, fmt.Sprintf("BBox area %.1f km² exceeds limit of %.1f km²", area, h.maxAreaKm2), http.StatusBadRequest)
		return
	}

	res, run, err := h.service.Fetch(r.Context(), bound)
	if errors.Is(err, core.ErrNoFetcher) {
		http.Error(w, "Overpass is not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.log.Error("fetch failed", zap.String("bbox", req.BBox), zap.Error(err))
		http.Error(w, fmt.Sprintf("Error fetching map: %v", err), http.StatusBadGateway)
		return
	}
	h.writeResult(w, r, res, run)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "Run store is not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.log.Error("list runs failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Error listing runs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "Run store is not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")

	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, repository.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("get run failed", zap.String("run_id", id), zap.Error(err))
		http.Error(w, fmt.Sprintf("Error reading run: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, res *core.Result, run *model.Run) {
	if run != nil && run.ID != "" {
		w.Header().Set("X-Run-ID", run.ID)
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, res.Text)
		return
	}
	writeJSON(w, http.StatusOK, res.Content)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
