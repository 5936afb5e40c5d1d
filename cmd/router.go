package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/monitoring"
	"github.com/sells-group/leadscore/internal/store"
)

const maxBodyBytes = 1 << 20

// apiServer holds the handlers' dependencies.
type apiServer struct {
	engine    *engine.Engine
	store     store.Store
	collector *monitoring.Collector
	lookback  int
}

func newRouter(api *apiServer, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", api.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", api.scoreProfile)
		r.Post("/leads", api.createLead)
		r.Post("/leads/{contactID}/score", api.scoreStoredLead)
		r.Get("/leads/{contactID}/pattern", api.getPattern)
		r.Get("/stats", api.stats)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *apiServer) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if a.store != nil {
		if err := a.store.Ping(r.Context()); err != nil {
			zap.L().Warn("health: store ping failed", zap.Error(err))
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (a *apiServer) scoreProfile(w http.ResponseWriter, r *http.Request) {
	var p model.LeadProfile
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a.score(w, r, &p)
}

func (a *apiServer) scoreStoredLead(w http.ResponseWriter, r *http.Request) {
	contactID := strings.TrimSpace(chi.URLParam(r, "contactID"))
	if contactID == "" {
		writeError(w, http.StatusBadRequest, "contact_id is required")
		return
	}

	p, err := a.store.GetLead(r.Context(), contactID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get lead", zap.String("contact_id", contactID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}
	a.score(w, r, p)
}

func (a *apiServer) score(w http.ResponseWriter, r *http.Request, p *model.LeadProfile) {
	result, err := a.engine.Score(r.Context(), p, scoreOptions(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func scoreOptions(r *http.Request) engine.ScoreOptions {
	skip, _ := strconv.ParseBool(r.URL.Query().Get("skip_enrichment"))
	return engine.ScoreOptions{SkipEnrichment: skip}
}

// createLead stores a new or changed lead and scores it straight away.
func (a *apiServer) createLead(w http.ResponseWriter, r *http.Request) {
	var p model.LeadProfile
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.UpsertLead(r.Context(), &p); err != nil {
		zap.L().Error("api: upsert lead", zap.String("contact_id", p.ContactID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store lead")
		return
	}

	result, err := a.engine.Score(r.Context(), &p, scoreOptions(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// getPattern serves the cached learning pattern, warming the cache from the
// store on a miss.
func (a *apiServer) getPattern(w http.ResponseWriter, r *http.Request) {
	contactID := chi.URLParam(r, "contactID")
	cache := a.engine.Cache()

	if lp, ok := cache.Get(r.Context(), contactID); ok {
		writeJSON(w, http.StatusOK, lp)
		return
	}

	lp, err := a.store.LatestPattern(r.Context(), contactID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "pattern not found")
		return
	}
	if err != nil {
		zap.L().Error("api: latest pattern", zap.String("contact_id", contactID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load pattern")
		return
	}
	cache.Put(r.Context(), *lp)
	writeJSON(w, http.StatusOK, lp)
}

func (a *apiServer) stats(w http.ResponseWriter, r *http.Request) {
	lookback := a.lookback
	if v := r.URL.Query().Get("lookback_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "lookback_hours must be a positive integer")
			return
		}
		lookback = n
	}

	snap, err := a.collector.Collect(r.Context(), lookback)
	if err != nil {
		zap.L().Error("api: collect stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
