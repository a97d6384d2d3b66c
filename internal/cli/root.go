// Package cli содержит команды администратора: миграции, список премиум-участников,
// отмену подписки, отключение учётных записей и чтение очередей событий.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/fitness-membership/internal/app/fitness"
	"github.com/magabrotheeeer/fitness-membership/internal/cache"
	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/notify"
	"github.com/magabrotheeeer/fitness-membership/internal/paymentprovider"
	"github.com/magabrotheeeer/fitness-membership/internal/services/membership"
	"github.com/magabrotheeeer/fitness-membership/internal/services/trainers"
)

// Admin содержит сервисы, с которыми работают команды.
type Admin struct {
	Membership *membership.Service
	Trainers   *trainers.Service
	Close      func() error
}

// Opener создаёт Admin. Подменяется в тестах.
type Opener func(ctx context.Context) (*Admin, error)

var configPath string

// NewRootCommand собирает дерево команд.
func NewRootCommand(log *slog.Logger, open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "fitness-admin",
		Short: "Administrative tasks for the fitness membership service",
		Long: `Administrative tasks for the fitness membership service.

Examples:
  fitness-admin migrate
  fitness-admin premium-users
  fitness-admin cancel alice
  fitness-admin deactivate coach_bob
  fitness-admin events`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults to CONFIG_PATH)")

	root.AddCommand(
		newMigrateCommand(),
		newPremiumUsersCommand(open),
		newCancelCommand(open),
		newSetActiveCommand(log, open, "deactivate", false),
		newSetActiveCommand(log, open, "activate", true),
		newEventsCommand(log),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return nil, fmt.Errorf("config path is not set: use --config or CONFIG_PATH")
	}
	return config.Load(path)
}

// ConfigOpener открывает хранилище и кэш по конфигу.
func ConfigOpener(log *slog.Logger) Opener {
	return func(ctx context.Context) (*Admin, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		store, _, err := fitness.OpenStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
		closers := []func() error{store.Close}

		var trainersCache trainers.Cache
		if cfg.RedisConnection.Enabled {
			c, err := cache.InitServer(ctx, cfg.RedisConnection)
			if err != nil {
				log.Warn("redis is unavailable, trainer cache will not be invalidated", sl.Err(err))
			} else {
				trainersCache = c
				closers = append(closers, c.Close)
			}
		}

		gateway := paymentprovider.New(log, cfg.Payment, paymentprovider.NewSimulatedProcessor(cfg.Payment.SimulateSuccess))
		return &Admin{
			Membership: membership.NewService(log, store, gateway, notify.NewLogNotifier(log), nil, cfg.Membership),
			Trainers:   trainers.NewService(log, store, trainersCache, cfg.TrainersTTL),
			Close: func() error {
				var firstErr error
				for i := len(closers) - 1; i >= 0; i-- {
					if err := closers[i](); err != nil && firstErr == nil {
						firstErr = err
					}
				}
				return firstErr
			},
		}, nil
	}
}

func withAdmin(cmd *cobra.Command, open Opener, fn func(a *Admin, out io.Writer) error) error {
	a, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a, cmd.OutOrStdout())
}
