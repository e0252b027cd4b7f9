package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// BillingService is the slice of the application facade the ops API needs.
type BillingService interface {
	MakePurchase(ctx context.Context, productID string, plan model.Plan) error
	ConsumePurchase(ctx context.Context, productID string) error
	Resume()
	ReconnectDelay() time.Duration
}

// Server exposes the operational HTTP surface: health, metrics, and the
// authenticated billing endpoints used by tooling and the demo client.
type Server struct {
	svc     BillingService
	table   *usecase.EntitlementTable
	catalog usecase.CatalogUseCase
	auth    *AuthManager
	log     *zerolog.Logger

	httpServer *http.Server
}

func NewServer(
	svc BillingService,
	table *usecase.EntitlementTable,
	catalog usecase.CatalogUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		svc:     svc,
		table:   table,
		catalog: catalog,
		auth:    auth,
		log:     logger,
	}
}

// Router builds the chi router. Split from Start so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			Recover(s.log),
			TraceID(),
			RequestLog(s.log),
			Timeout(15*time.Second),
			s.auth.RequireAuth,
		)
		r.Get("/entitlements", entitlementsHandler(s.table))
		r.Get("/products", productsHandler(s.table, s.catalog))
		r.Get("/connection", connectionHandler(s.svc, s.catalog))
		r.Post("/purchase", purchaseHandler(s.svc))
		r.Post("/refresh", refreshHandler(s.svc))
		r.Post("/consume", consumeHandler(s.svc))
	})

	return r
}

func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}
	s.log.Info().Int("port", port).Msg("ops HTTP server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
