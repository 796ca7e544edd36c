// Package server exposes the finished dataset as a read-only query API:
// lookup by ZIP, random record, and nearest record by coordinate. It indexes
// and serves; it never transforms the data.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zipdata-cli/internal/store"
)

// Server serves the query API over a Store plus an in-memory coordinate index.
type Server struct {
	store store.Store
	index *Index
}

// New builds a Server, loading the coordinate index from the store.
func New(ctx context.Context, st store.Store) (*Server, error) {
	details, err := st.All(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "server: load index")
	}

	entries := make([]indexEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, indexEntry{
			Zip:        d.Zip,
			Lat:        d.Lat,
			Lng:        d.Lng,
			Population: d.Population,
		})
	}

	zap.L().Info("coordinate index loaded", zap.Int("records", len(entries)))
	return &Server{store: st, index: newIndex(entries)}, nil
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/random", s.handleRandom)
	r.Get("/nearest", s.handleNearest)
	r.Get("/{query}", s.handleQuery)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": n})
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	if weighted, _ := strconv.ParseBool(r.URL.Query().Get("weighted")); weighted {
		zip, ok := s.index.WeightedRandom()
		if !ok {
			writeError(w, http.StatusNotFound, "no records with population")
			return
		}
		s.respondByZip(w, r, zip)
		return
	}

	detail, err := s.store.Random(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "dataset is empty")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}
	s.respondNearest(w, r, lat, lng)
}

// handleQuery serves GET /{query}, where query is either a ZIP code or a
// "lat,lng" coordinate pair.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")

	if strings.Contains(query, ",") {
		parts := strings.SplitN(query, ",", 2)
		lat, latErr := strconv.ParseFloat(parts[0], 64)
		lng, lngErr := strconv.ParseFloat(parts[1], 64)
		if latErr == nil && lngErr == nil {
			if lat < -90 || lat > 90 {
				writeError(w, http.StatusBadRequest, "latitude must be between -90 and 90")
				return
			}
			if lng < -180 || lng > 180 {
				writeError(w, http.StatusBadRequest, "longitude must be between -180 and 180")
				return
			}
			s.respondNearest(w, r, lat, lng)
			return
		}
		// Fall through: not parseable coordinates, treat as a zip lookup.
	}

	s.respondByZip(w, r, query)
}

func (s *Server) respondNearest(w http.ResponseWriter, r *http.Request, lat, lng float64) {
	zip, ok := s.index.Nearest(lat, lng)
	if !ok {
		writeError(w, http.StatusNotFound, "dataset is empty")
		return
	}
	s.respondByZip(w, r, zip)
}

func (s *Server) respondByZip(w http.ResponseWriter, r *http.Request, zip string) {
	detail, err := s.store.GetByZip(r.Context(), zip)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "zip code not found")
			return
		}
		zap.L().Error("lookup failed", zap.String("zip", zip), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
