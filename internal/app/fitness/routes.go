package fitness

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/health"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/membership/cancel"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/membership/features"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/membership/upgrade"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/membership/workout"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/messages/conversations"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/messages/history"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/messages/send"
	profilefitness "github.com/magabrotheeeer/fitness-membership/internal/http/handlers/profile/fitness"
	profileget "github.com/magabrotheeeer/fitness-membership/internal/http/handlers/profile/get"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/profile/password"
	profileupdate "github.com/magabrotheeeer/fitness-membership/internal/http/handlers/profile/update"
	trainerslist "github.com/magabrotheeeer/fitness-membership/internal/http/handlers/trainers/list"
	"github.com/magabrotheeeer/fitness-membership/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitness-membership/internal/http/response"
	"github.com/magabrotheeeer/fitness-membership/internal/metrics"
	"github.com/magabrotheeeer/fitness-membership/internal/services/auth"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
	"github.com/magabrotheeeer/fitness-membership/internal/services/messaging"
	"github.com/magabrotheeeer/fitness-membership/internal/services/trainers"
)

// Services содержит бизнес-сервисы, которые обслуживают маршруты.
type Services struct {
	Auth       *auth.Service
	Membership *membership.Service
	Messaging  *messaging.Service
	Trainers   *trainers.Service
}

// RouteDeps содержит зависимости для регистрации маршрутов.
type RouteDeps struct {
	Logger         *slog.Logger
	Services       Services
	Health         *health.Handler
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	ExposeInternal bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d RouteDeps) {
	logger := d.Logger
	svc := d.Services

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		d.Metrics.Middleware,
		response.ExposeInternal(d.ExposeInternal),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		r.Get("/health", d.Health.ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))

			r.Get("/profile", profileget.New(logger, svc.Auth).ServeHTTP)
			r.Patch("/profile", profileupdate.New(logger, svc.Auth).ServeHTTP)
			r.Post("/profile/password", password.New(logger, svc.Auth).ServeHTTP)
			r.Put("/profile/fitness", profilefitness.New(logger, svc.Auth).ServeHTTP)

			r.Get("/premium-features", features.New(logger, svc.Membership).ServeHTTP)
			r.Post("/membership/upgrade", upgrade.New(logger, svc.Membership).ServeHTTP)
			r.Post("/membership/cancel", cancel.New(logger, svc.Membership).ServeHTTP)
			r.Post("/workouts", workout.New(logger, svc.Membership).ServeHTTP)

			r.Get("/trainers", trainerslist.New(logger, svc.Trainers).ServeHTTP)
			r.Get("/messages/{counterpartID}", history.New(logger, svc.Messaging).ServeHTTP)
			r.Post("/messages/{counterpartID}", send.New(logger, svc.Messaging).ServeHTTP)
			r.Get("/conversations", conversations.New(logger, svc.Messaging).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
