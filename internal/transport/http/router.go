package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-identity-api/internal/application/account"
	"github.com/go-identity-api/internal/application/session"
	"github.com/go-identity-api/internal/application/verification"
	"github.com/go-identity-api/internal/config"
	"github.com/go-identity-api/internal/transport/http/handler"
	appmiddleware "github.com/go-identity-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo: deps.SessionRepo,
		UserRepo:    deps.UserRepo,
		JWTProvider: deps.JWTProvider,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo: deps.UserRepo,
		Sessions: sessionSvc,
		Notifier: deps.Dispatcher,
	})
	verificationSvc := verification.NewService(verification.ServiceDeps{
		UserRepo:    deps.UserRepo,
		SessionRepo: deps.SessionRepo,
		Tokens:      deps.Tokens,
		Notifier:    deps.Dispatcher,
		SiteURL:     cfg.SiteURL,
	})

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(accountSvc)
	emailH := handler.NewEmailConfirmHandler(verificationSvc)
	resetH := handler.NewPasswordResetHandler(verificationSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/sessions/login", sessionH.Login)
		r.Post("/users", userH.Register)
		r.Post("/password-reset/request", resetH.Request)
		r.Post("/password-reset/confirm/{uid}/{token}", resetH.Confirm)
		r.Get("/confirm-email/{uid}/{token}", emailH.Confirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Post("/users/{id}/password", userH.ChangePassword)

			r.Post("/confirm-email/request", emailH.Request)
		})
	})

	return r
}
