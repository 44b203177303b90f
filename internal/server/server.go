package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, metrics config.MetricsConfig, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers, metrics)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers, metrics config.MetricsConfig) {
	// Dashboard and admin routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("POST /admin/cache/clear", s.apiHandlers.HandleClearCache)
	if metrics.Enabled {
		s.mux.Handle("GET "+metrics.Path, promhttp.Handler())
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/preview", s.apiHandlers.HandlePreview)
	s.mux.HandleFunc("GET /api/columns", s.apiHandlers.HandleColumns)
	s.mux.HandleFunc("GET /api/univariate/numeric", s.apiHandlers.HandleNumericProfile)
	s.mux.HandleFunc("GET /api/univariate/categorical", s.apiHandlers.HandleCategoricalProfile)
	s.mux.HandleFunc("GET /api/bivariate/numeric", s.apiHandlers.HandleNumericRelation)
	s.mux.HandleFunc("GET /api/bivariate/categorical", s.apiHandlers.HandleAggregate)
	s.mux.HandleFunc("GET /api/bivariate/time", s.apiHandlers.HandleTimeTrend)
	s.mux.HandleFunc("GET /api/aggregate", s.apiHandlers.HandleAggregate)
	s.mux.HandleFunc("GET /api/insights", s.apiHandlers.HandleInsights)
	s.mux.HandleFunc("GET /api/questions", s.apiHandlers.HandleQuestions)
	s.mux.HandleFunc("GET /api/questions/{id}", s.apiHandlers.HandleQuestion)
	s.mux.HandleFunc("GET /api/quality", s.apiHandlers.HandleQuality)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/overview", s.sseHandlers.HandleOverview)
	s.mux.HandleFunc("GET /sse/aggregate", s.sseHandlers.HandleAggregate)
	s.mux.HandleFunc("GET /sse/insights", s.sseHandlers.HandleInsights)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
