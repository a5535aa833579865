package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tumbiko/Pluto-shopping-store/config"
	"github.com/tumbiko/Pluto-shopping-store/internal/db"
	"github.com/tumbiko/Pluto-shopping-store/internal/handlers"
	"github.com/tumbiko/Pluto-shopping-store/internal/middleware"
	"github.com/tumbiko/Pluto-shopping-store/internal/provider"
	"github.com/tumbiko/Pluto-shopping-store/internal/reconcile"
	"github.com/tumbiko/Pluto-shopping-store/logging"
)

func main() {
	logger := logging.GetSugaredLogger()
	defer logger.Sync()

	cfg := config.GetConfig()

	database, err := db.NewManager(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer database.Close()

	providerClient := provider.NewClient(cfg, logger)
	reconciler := reconcile.NewManager(database, logger)

	h := handlers.Handler{
		Config:     cfg,
		Database:   database,
		Logger:     logger,
		Provider:   providerClient,
		Reconciler: reconciler,
	}

	r := initRouter(h)

	err = http.ListenAndServe(cfg.RunAddress, r)
	logger.Fatalw("failed to start server", "error", err)
}

func initRouter(h handlers.Handler) *chi.Mux {
	validateAuth := middleware.ValidateAuth(h.Config.AuthSecret)

	r := chi.NewRouter()
	r.Post(`/api/payments/initialize`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.InitializePayment),
				h.Logger,
				middleware.WriteWithCompression,
				middleware.ReadWithCompression,
				middleware.RequireJSON,
			).ServeHTTP(w, r)
		},
	)
	r.Get(`/api/payments/verify`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.VerifyPayment),
				h.Logger,
				middleware.WriteWithCompression,
			).ServeHTTP(w, r)
		},
	)
	// The webhook route takes the body as-is: the HMAC is computed over the
	// exact raw bytes, so no read-side middleware may touch them.
	r.Post(`/api/payments/webhook`,
		func(w http.ResponseWriter, r *http.Request) {
			h.Webhook(w, r)
		},
	)
	r.Get(`/api/payments/operators`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.ListOperators),
				h.Logger,
				middleware.WriteWithCompression,
			).ServeHTTP(w, r)
		},
	)
	r.Post(`/api/addresses`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.CreateAddress),
				h.Logger,
				middleware.WriteWithCompression,
				middleware.ReadWithCompression,
				middleware.RequireJSON,
				validateAuth,
			).ServeHTTP(w, r)
		},
	)
	r.Get(`/api/addresses`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.GetAddresses),
				h.Logger,
				middleware.WriteWithCompression,
				validateAuth,
			).ServeHTTP(w, r)
		},
	)
	r.Patch(`/api/addresses`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.UpdateAddress),
				h.Logger,
				middleware.WriteWithCompression,
				middleware.ReadWithCompression,
				middleware.RequireJSON,
				validateAuth,
			).ServeHTTP(w, r)
		},
	)
	r.Delete(`/api/addresses`,
		func(w http.ResponseWriter, r *http.Request) {
			middleware.Conveyor(
				http.HandlerFunc(h.DeleteAddress),
				h.Logger,
				middleware.WriteWithCompression,
				validateAuth,
			).ServeHTTP(w, r)
		},
	)
	return r
}
