package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"futmap/internal/config"
	"futmap/internal/domain"
	"futmap/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Exporter streams a user's bookings as an XLSX workbook.
type Exporter interface {
	WriteUserBookings(ctx context.Context, w io.Writer, userID string) error
}

// HTTPServer exposes the catalog and the booking ledger over JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	catalog  domain.CatalogService
	ledger   domain.LedgerService
	exporter Exporter
	server   *http.Server
	auth     *HTTPAuth
	log      zerolog.Logger
	now      func() time.Time
}

func NewHTTPServer(
	cfg config.APIConfig,
	catalog domain.CatalogService,
	ledger domain.LedgerService,
	exporter Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		catalog:  catalog,
		ledger:   ledger,
		exporter: exporter,
		auth:     NewHTTPAuth(cfg),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.auth.Middleware)

	v1.HandleFunc("/fields", s.handleListFields).Methods(http.MethodGet)
	v1.HandleFunc("/fields/{id}", s.handleGetField).Methods(http.MethodGet)
	v1.HandleFunc("/fields/{id}/availability", s.handleFieldAvailability).Methods(http.MethodGet)

	v1.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	v1.HandleFunc("/bookings/{id}", s.handleGetBooking).Methods(http.MethodGet)
	v1.HandleFunc("/bookings/{id}/cancel", s.handleCancelBooking).Methods(http.MethodPost)

	v1.HandleFunc("/users/{id}/bookings", s.handleUserBookings).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}/upcoming", s.handleUpcoming).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/users/{id}/export", s.handleExport).Methods(http.MethodGet)

	origins := s.cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", s.auth.keys.header, requestIDHeader},
	})

	return c.Handler(r)
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.IncHTTP(route, strconv.Itoa(recorder.status))

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("route", route).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDomainError maps domain sentinels to HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case domain.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
	default:
		s.log.Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
