package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mizan-erp/mizan-erp/internal/accounting/accounts"
	"github.com/mizan-erp/mizan-erp/internal/accounting/journals"
	"github.com/mizan-erp/mizan-erp/internal/accounting/mappings"
	"github.com/mizan-erp/mizan-erp/internal/auth"
	"github.com/mizan-erp/mizan-erp/internal/inventory"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/products"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/reps"
	"github.com/mizan-erp/mizan-erp/internal/observability"
	"github.com/mizan-erp/mizan-erp/internal/procurement"
	"github.com/mizan-erp/mizan-erp/internal/sales"
	"github.com/mizan-erp/mizan-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	AccountsHandler    *accounts.Handler
	JournalsHandler    *journals.Handler
	MappingsHandler    *mappings.Handler
	ProductsHandler    *products.Handler
	RepsHandler        *reps.Handler
	SalesHandler       *sales.Handler
	ProcurementHandler *procurement.Handler
	InventoryHandler   *inventory.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAuth)

			r.Route("/accounts", params.AccountsHandler.MountRoutes)
			r.Route("/journals", params.JournalsHandler.MountRoutes)
			r.Route("/account-mappings", params.MappingsHandler.MountRoutes)
			r.Route("/products", params.ProductsHandler.MountRoutes)
			r.Route("/reps", params.RepsHandler.MountRoutes)
			r.Route("/sales", params.SalesHandler.MountRoutes)
			r.Route("/purchases", params.ProcurementHandler.MountRoutes)
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
