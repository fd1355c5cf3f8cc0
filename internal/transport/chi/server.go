package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/domain"
	logpkg "github.com/kailas-cloud/rulesage/internal/logger"
	"github.com/kailas-cloud/rulesage/internal/metrics"
	"github.com/kailas-cloud/rulesage/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/rulesage/internal/usecase/health"
	"github.com/kailas-cloud/rulesage/internal/usecase/retrieval"
)

const maxBodyBytes = 64 << 10

// Retriever runs adaptive retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, raw string, k int) (retrieval.Response, error)
}

// Asker answers questions from retrieved context.
type Asker interface {
	Ask(ctx context.Context, question string, k int) (answer.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the retrieval API.
type Server struct {
	retriever     Retriever
	asker         Asker
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. asker may be nil, which disables /v1/ask.
func NewServer(retriever Retriever, asker Asker, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		retriever: retriever,
		asker:     asker,
		health:    health,
		logger:    logger,
	}
	// Provider errors wrap ErrUpstreamUnavailable, so they go first.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, ErrorCodeCompletionProvider),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, ErrorCodeUpstream),
	}
	return s
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/retrieve", s.Retrieve)
		if s.asker != nil {
			r.Post("/ask", s.Ask)
		}
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
	return r
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(logpkg.With(r.Context(), zap.String("op", "retrieve")))
	resp, err := s.retriever.Retrieve(ctx, req.Query, req.K)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	out := RetrieveResponse{
		QueryID: resp.Trace.QueryID,
		Intent:  string(resp.Trace.Intent),
		Results: resultsToDTO(resp.Results),
	}
	if req.Debug {
		out.Trace = traceToDTO(&resp.Trace)
	}

	setUsageHeaders(w, usage.Snapshot())
	writeJSON(w, http.StatusOK, out)
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, _ := domain.NewContextWithUsage(logpkg.With(r.Context(), zap.String("op", "ask")))
	ans, err := s.asker.Ask(ctx, req.Question, req.K)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	out := AskResponse{
		QueryID: ans.Retrieval.Trace.QueryID,
		Answer:  ans.Text,
		Results: resultsToDTO(ans.Retrieval.Results),
		Usage:   usageToDTO(ans.Usage),
	}
	if req.ShowContext {
		c := ans.Context
		out.Context = &c
	}
	if req.Debug {
		out.Trace = traceToDTO(&ans.Retrieval.Trace)
	}

	setUsageHeaders(w, ans.Usage)
	writeJSON(w, http.StatusOK, out)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, u domain.UsageSnapshot) {
	if u.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(u.EmbeddingTokens))
	}
	if u.PromptTokens > 0 || u.CompletionTokens > 0 {
		w.Header().Set("X-Completion-Tokens", strconv.Itoa(u.PromptTokens+u.CompletionTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Only the sentinel text reaches the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if errors.Is(sentinel, domain.ErrInvalidQuery) {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx, s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}
