package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"salescore/internal/auth"
	"salescore/internal/config"
	"salescore/internal/domain/storage"
	"salescore/internal/mailer"
	"salescore/internal/provider/mercadopago"
	"salescore/internal/ratelimiter"
)

type application struct {
	config        *config.Config
	store         *storage.Container
	logger        *zap.SugaredLogger
	mailer        mailer.Client
	authenticator auth.Authenticator
	mpClient      *mercadopago.Client
	antiAbuse     *ratelimiter.AntiAbuseLimiter
	rateLimiter   *ratelimiter.FixedWindowRateLimiter
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", app.healthCheckHandler)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", app.listProductCardsHandler)
		r.Get("/{id}", app.getProductHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware, app.RequireAdmin)
			r.Post("/", app.adminCreateProductHandler)
			r.Put("/{id}", app.adminUpdateProductHandler)
			r.Patch("/{id}", app.adminUpdateProductHandler)
			r.Delete("/{id}", app.adminDeleteProductHandler)
		})
	})

	r.Post("/users", app.registerUserHandler)
	r.With(app.AuthTokenMiddleware, app.RequireAdmin).Get("/users/search", app.searchUsersHandler)
	r.With(app.AuthTokenMiddleware, app.RequireAdmin).Post("/users/resolve", app.resolveUserHandler)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", app.loginHandler)
		r.Post("/refresh", app.refreshHandler)
		r.Post("/logout", app.logoutHandler)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware)

		r.Get("/draft", app.getDraftOrderHandler)
		r.Post("/draft/items", app.addDraftItemHandler)
		r.Delete("/draft/items/{id}", app.removeDraftItemHandler)

		r.Get("/{id}", app.getOrderHandler)
		r.Patch("/{id}/status", app.changeOrderStatusHandler)
		r.Post("/{id}/pay", app.payOrderHandler)
		r.Post("/{id}/payments", app.createOrderPaymentHandler)
		r.Get("/{id}/payments", app.listOrderPaymentsHandler)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook/mercadopago", app.mercadopagoWebhookHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/{id}", app.getPaymentHandler)
		})
	})

	r.Post("/checkout/guest", app.guestCheckoutHandler)

	r.Route("/orders/manual", func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware, app.RequireAdmin)
		r.Post("/submitted", app.manualSubmittedOrderHandler)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware, app.RequireAdmin)
		r.Post("/stock-reservations/expire", app.expireReservationsHandler)
	})

	r.Route("/turns", func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware)
		r.Post("/", app.createTurnHandler)
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		app.logger.Infow("signal caught", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "port", port, "env", app.config.Env)

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Errorw("server error", "error", err)
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}
	app.logger.Infow("server has stopped")
	return nil
}
