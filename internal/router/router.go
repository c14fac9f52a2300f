package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/juju/loggo"
	"github.com/restopos/api/internal/access"
	accthandler "github.com/restopos/api/internal/accounting/handler"
	"github.com/restopos/api/internal/auth"
	"github.com/restopos/api/internal/config"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/export"
	"github.com/restopos/api/internal/handler"
	mw "github.com/restopos/api/internal/middleware"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
)

var logger = loggo.GetLogger("restopos.router")

// New creates a Chi router with all application routes wired up.
// Every protected group is gated by the capabilities of the caller's role.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	loc, err := cfg.Location()
	if err != nil {
		logger.Warningf("falling back to UTC: %v", err)
		loc = time.UTC
	}

	// --- Services ---
	cartService := service.NewCartService(pool, func(db database.DBTX) service.CartStore {
		return database.New(db)
	})
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	ledgerService := service.NewLedgerService(pool, func(db database.DBTX) service.LedgerStore {
		return database.New(db)
	})
	userService := service.NewUserService(pool, func(db database.DBTX) service.UserStore {
		return database.New(db)
	})
	reportService := service.NewReportService(queries, loc)

	// Deactivated accounts lose their live access tokens immediately.
	revoked := auth.NewRevocations()

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Method(http.MethodGet, "/ws", ws.NewHandler(hub, cfg.JWTSecret, revoked, cfg.CORSOrigins))

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RejectRevoked(revoked))

		// Menu
		dishHandler := handler.NewDishHandler(queries, hub)
		r.Route("/dishes", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.ViewMenu))
				dishHandler.RegisterRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.ManageMenu))
				dishHandler.RegisterManageRoutes(r)
			})
		})

		// Cart
		cartHandler := handler.NewCartHandler(cartService, orderService, hub)
		r.Route("/cart", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.ManageCart))
				cartHandler.RegisterRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.Checkout))
				cartHandler.RegisterCheckoutRoutes(r)
			})
		})

		// Orders
		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.ManageCart))
				orderHandler.RegisterTableRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.ServeTables))
				orderHandler.RegisterServeRoutes(r)
			})
			// Any authenticated caller; the handler scopes tables to their own orders.
			orderHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(access.AdvanceKitchen))
			r.Route("/kitchen/orders", orderHandler.RegisterKitchenRoutes)
		})

		// Floor
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(access.ServeTables))
			tableHandler := handler.NewTableHandler(orderService, queries, hub)
			r.Route("/tables", tableHandler.RegisterRoutes)
		})

		// Accounting
		r.Route("/accounting", func(r chi.Router) {
			txHandler := accthandler.NewTransactionHandler(queries, ledgerService, hub, loc)
			r.Route("/expenses", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireCapability(access.ViewFinance))
					txHandler.RegisterExpenseRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireCapability(access.RecordExpense))
					txHandler.RegisterExpenseWriteRoutes(r)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(access.ViewFinance))

				dashboardHandler := accthandler.NewDashboardHandler(reportService)
				r.Route("/dashboard", dashboardHandler.RegisterRoutes)

				r.Route("/payments", txHandler.RegisterPaymentRoutes)

				reportHandler := accthandler.NewReportHandler(reportService, export.CSV{})
				r.Route("/report", reportHandler.RegisterRoutes)
			})
		})

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(access.ManageUsers))

			userHandler := handler.NewUserHandler(userService, queries, revoked)
			r.Route("/users", userHandler.RegisterRoutes)

			adminHandler := handler.NewAdminHandler(queries)
			r.Route("/admin", adminHandler.RegisterRoutes)
		})
	})

	logger.Infof("router initialized")
	return r
}
