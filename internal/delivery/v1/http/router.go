package http

import (
	_ "github.com/DRSN-tech/inventory-tracker/docs" // описание API для /swagger
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(invUC usecase.InventoryUC) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		invHandler := NewInventoryHandler(invUC, r.logger)
		registerProductRoutes(v1, invHandler)
		registerInventoryRoutes(v1, invHandler)
	})
}

func registerProductRoutes(router chi.Router, h *InventoryHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", h.findProducts)
		pr.Get("/{id}/events", h.productEvents)
	})
}

func registerInventoryRoutes(router chi.Router, h *InventoryHandler) {
	router.Post("/imports", h.importProducts)
	router.Get("/report", h.report)
	router.Get("/verify", h.verify)
}
