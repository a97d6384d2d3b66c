// Package fitness собирает HTTP-сервис: хранилище, кэш, брокер событий, платёжный шлюз и маршруты.
package fitness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/fitness-membership/internal/cache"
	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/http/handlers/health"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/jwt"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/metrics"
	"github.com/magabrotheeeer/fitness-membership/internal/migrations"
	"github.com/magabrotheeeer/fitness-membership/internal/notify"
	"github.com/magabrotheeeer/fitness-membership/internal/paymentprovider"
	"github.com/magabrotheeeer/fitness-membership/internal/services/auth"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
	"github.com/magabrotheeeer/fitness-membership/internal/services/messaging"
	"github.com/magabrotheeeer/fitness-membership/internal/services/trainers"
	"github.com/magabrotheeeer/fitness-membership/internal/storage"
	"github.com/magabrotheeeer/fitness-membership/internal/storage/memory"
	"github.com/magabrotheeeer/fitness-membership/internal/storage/repository"
)

// App собирает HTTP-сервис со всеми зависимостями.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	store   storage.Store
	cache   *cache.Cache
	amqp    *amqp.Connection
	closers []func() error
}

// OpenStorage открывает хранилище по драйверу из конфига. Для PostgreSQL применяет миграции.
// Вторым значением возвращается пул соединений для проверки здоровья, nil для хранилища в памяти.
func OpenStorage(cfg config.Storage) (storage.Store, health.Pinger, error) {
	const op = "fitness.OpenStorage"
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil, nil
	case config.DriverPostgres:
		db, err := repository.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return db, db.DB, nil
	default:
		return nil, nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}
}

// New создаёт приложение по конфигу.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	store, pinger, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	var trainersCache trainers.Cache
	if cfg.RedisConnection.Enabled {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.close()
			return nil, err
		}
		a.cache = c
		a.closers = append(a.closers, c.Close)
		trainersCache = c
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			a.close()
			return nil, err
		}
		a.amqp = conn
		a.closers = append(a.closers, conn.Close)

		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEventQueues())
		if err != nil {
			a.close()
			return nil, err
		}
		pub := rabbitmq.NewPublisher(ch)
		a.closers = append(a.closers, pub.Close)
		notifier = notify.Safe(logger, notify.NewBrokerNotifier(pub))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	gateway := paymentprovider.New(logger, cfg.Payment, paymentprovider.NewSimulatedProcessor(cfg.Payment.SimulateSuccess))
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	directory := trainers.NewService(logger, store, trainersCache, cfg.TrainersTTL)
	svc := Services{
		Auth:       auth.NewService(logger, store, jwtMaker).WithTrainerDirectory(directory),
		Membership: membership.NewService(logger, store, gateway, notifier, m, cfg.Membership),
		Messaging:  messaging.NewService(logger, store, store, notifier, m),
		Trainers:   directory,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, RouteDeps{
		Logger:         logger,
		Services:       svc,
		Health:         health.New(logger, pinger, gateway),
		Metrics:        m,
		Gatherer:       reg,
		ExposeInternal: cfg.IsLocal(),
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Handler возвращает корневой HTTP-обработчик.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close освобождает ресурсы в обратном порядке открытия.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
