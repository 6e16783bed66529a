// Package httpapi exposes the assessment engine and the service health
// endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/database"
	apperrors "bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
	"bvester-assessment/internal/common/validation"
	evaluateassessment "bvester-assessment/internal/workers/assessment/evaluate-assessment"
	nextquestion "bvester-assessment/internal/workers/assessment/next-question"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type Evaluator interface {
	Execute(ctx context.Context, input *evaluateassessment.Input) (*evaluateassessment.Output, error)
}

type Navigator interface {
	Execute(ctx context.Context, input *nextquestion.Input) (*nextquestion.Output, error)
}

type Options struct {
	Catalog        *assessment.Catalog
	Evaluator      Evaluator
	Navigator      Navigator
	Dependencies   map[string]database.Pinger
	AllowedOrigins []string
	ReadyTimeout   time.Duration
	Logger         logger.Logger
}

type Server struct {
	opts Options
	log  logger.Logger
	now  func() time.Time
}

func New(opts Options) *Server {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		opts: opts,
		log:  logger.ForComponent(opts.Logger, "http-api"),
		now:  time.Now,
	}
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.countRequests)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/catalog", s.catalog)
		r.Post("/assessments/evaluate", s.evaluate)
		r.Post("/assessments/next", s.next)
	})
	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	failures := database.CheckAll(r.Context(), s.opts.ReadyTimeout, s.opts.Dependencies)
	if len(failures) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	detail := make(map[string]string, len(failures))
	for name, err := range failures {
		detail[name] = err.Error()
	}
	s.log.Warn("readiness check failed", map[string]interface{}{"failures": detail})
	writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
		"status":   "not_ready",
		"failures": detail,
	})
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Catalog)
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readValidated(w, r, validation.SchemaEvaluate)
	if !ok {
		return
	}
	var input evaluateassessment.Input
	if err := json.Unmarshal(body, &input); err != nil {
		s.writeError(w, apperrors.NewAnswersInvalidError(err.Error()))
		return
	}
	out, err := s.opts.Evaluator.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readValidated(w, r, validation.SchemaNext)
	if !ok {
		return
	}
	var input nextquestion.Input
	if err := json.Unmarshal(body, &input); err != nil {
		s.writeError(w, apperrors.NewAnswersInvalidError(err.Error()))
		return
	}
	out, err := s.opts.Navigator.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) readValidated(w http.ResponseWriter, r *http.Request, schema string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, apperrors.NewAnswersInvalidError(err.Error()))
		return nil, false
	}
	res, err := validation.ValidateJSON(schema, body)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"code":   apperrors.ErrCodeAnswersInvalid,
			"errors": res.Errors,
		})
		return nil, false
	}
	return body, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", map[string]interface{}{"code": stdErr.Code, "error": err})
	}
	writeJSON(w, status, stdErr)
}

func statusFor(code apperrors.ErrorCode) int {
	switch apperrors.GetErrorCategory(code) {
	case "VALIDATION":
		return http.StatusBadRequest
	case "SESSION":
		if code == apperrors.ErrCodeSessionNotFound {
			return http.StatusNotFound
		}
		return http.StatusServiceUnavailable
	}
	if apperrors.IsRetryableErrorCode(code) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
