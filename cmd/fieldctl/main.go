package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/auth"
	"github.com/fieldops/dispatch/internal/config"
	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/persistence"
	"github.com/fieldops/dispatch/internal/repository"
)

var (
	queueSector string
	queueStatus string
	queueLimit  int
)

var rootCmd = &cobra.Command{
	Use:           "fieldctl",
	Short:         "Operator tooling for the field dispatch service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL migrations to the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPostgres(cmd.Context(), func(cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) error {
			return persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger)
		})
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Print the ranked ticket queue with SLA countdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := domain.TicketStatus(queueStatus)
		if !status.Valid() {
			return fmt.Errorf("invalid status %q", queueStatus)
		}
		return withPostgres(cmd.Context(), func(cfg *config.Config, pg *persistence.Postgres, _ *zap.Logger) error {
			now := time.Now()
			filter := repository.ExternalTicketFilter{
				Statuses:     []domain.TicketStatus{status},
				Order:        repository.OrderRanked,
				RankAt:       now,
				RankLocation: cfg.Board.Location(),
				Limit:        queueLimit,
			}
			if status == domain.TicketStatusDone {
				filter.Order = repository.OrderRecentlyUpdated
			}
			if queueSector != "" {
				filter.SectorIDs = []string{queueSector}
			}
			tickets, err := repository.NewExternalTicketRepository(pg.PoolHandle()).List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list tickets: %w", err)
			}
			return renderQueue(cmd.OutOrStdout(), tickets, status, now, cfg.Board.Location())
		})
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <user-id>",
	Short: "Sign an access token for an active user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPostgres(cmd.Context(), func(cfg *config.Config, pg *persistence.Postgres, _ *zap.Logger) error {
			user, err := repository.NewUserRepository(pg.PoolHandle()).GetByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load user %s: %w", args[0], err)
			}
			if !user.Active {
				return fmt.Errorf("user %s is inactive", user.ID)
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			token, expiresAt, err := tokens.GenerateToken(user.ID, user.Role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "role=%s expires=%s\n", user.Role, expiresAt.Format(time.RFC3339))
			return nil
		})
	},
}

func withPostgres(ctx context.Context, fn func(*config.Config, *persistence.Postgres, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	return fn(cfg, pg, logger)
}

func init() {
	queueCmd.Flags().StringVar(&queueSector, "sector", "", "restrict to one sector id")
	queueCmd.Flags().StringVar(&queueStatus, "status", string(domain.TicketStatusPending), "status filter")
	queueCmd.Flags().IntVar(&queueLimit, "limit", 50, "maximum tickets to print")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(issueTokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
