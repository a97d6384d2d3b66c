package cli

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/fitness-membership/internal/config"
	"github.com/magabrotheeeer/fitness-membership/internal/lib/sl"
	"github.com/magabrotheeeer/fitness-membership/internal/migrations"
	"github.com/magabrotheeeer/fitness-membership/internal/storage/repository"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires the postgres storage driver, got %q", cfg.Driver)
			}
			db, err := repository.New(cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newPremiumUsersCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "premium-users",
		Short:   "List members with an active paid tier",
		Aliases: []string{"premium"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAdmin(cmd, open, func(a *Admin, out io.Writer) error {
				accs, err := a.Membership.ListPremium(cmd.Context())
				if err != nil {
					return err
				}
				if len(accs) == 0 {
					fmt.Fprintln(out, "no premium members")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "USERNAME\tTIER\tPLAN\tMETHOD\tENDS")
				for _, acc := range accs {
					ends := "-"
					if acc.Subscription.EndDate != nil {
						ends = acc.Subscription.EndDate.Format("2006-01-02")
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", acc.Username, acc.Tier,
						acc.Subscription.PlanName, acc.Subscription.PaymentMethod, ends)
				}
				return tw.Flush()
			})
		},
	}
}

func newCancelCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <username>",
		Short: "Cancel a member's subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, open, func(a *Admin, out io.Writer) error {
				st, err := a.Membership.CancelByUsername(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "membership of %s cancelled, tier: %s\n", args[0], st.Tier)
				return nil
			})
		},
	}
}

func newSetActiveCommand(log *slog.Logger, open Opener, use string, active bool) *cobra.Command {
	short := "Soft-disable an account"
	if active {
		short = "Re-enable a disabled account"
	}
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, open, func(a *Admin, out io.Writer) error {
				if err := a.Membership.SetActiveByUsername(cmd.Context(), args[0], active); err != nil {
					return err
				}
				if err := a.Trainers.Invalidate(cmd.Context()); err != nil {
					log.Warn("failed to invalidate trainers cache", sl.Err(err))
				}
				fmt.Fprintf(out, "account %s: active=%t\n", args[0], active)
				return nil
			})
		},
	}
}
