package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bvester-assessment/internal/common/config"
	"bvester-assessment/internal/common/database"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/store/results"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Manage results waiting in the local SQLite outbox",
}

// openOutbox opens the SQLite outbox named in the service config.
func openOutbox(ctx context.Context, cfg *config.Config) (*database.SQLiteClient, *results.LocalOutbox, error) {
	db, err := database.NewSQLite(cfg.Database.SQLite)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open sqlite")
	}
	outbox, err := results.NewLocalOutbox(ctx, db.DB)
	if err != nil {
		_ = db.Close()
		return nil, nil, eris.Wrap(err, "open outbox")
	}
	return db, outbox, nil
}

// -- outbox status --

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count results not yet synced to Postgres",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, outbox, err := openOutbox(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		n, err := outbox.CountPending(ctx)
		if err != nil {
			return eris.Wrap(err, "outbox status")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d pending\n", n)
		return nil
	},
}

// -- outbox replay --

var outboxReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Push pending outbox results to Postgres",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, outbox, err := openOutbox(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return eris.Wrap(err, "connect postgres")
		}
		defer pg.Close() //nolint:errcheck

		repo := results.NewPostgresRepository(pg.GetDB())
		if err := repo.EnsureSchema(ctx); err != nil {
			return eris.Wrap(err, "ensure schema")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		persister := results.NewPersister(repo, outbox,
			cfg.Assessment.PersistRetries,
			config.GetDuration(cfg.Assessment.RetryDelay),
			logger.NewZapAdapter(zap.L()),
		)
		report, err := persister.Replay(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "outbox replay")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d, failed %d, pending %d\n",
			report.Replayed, report.Failed, report.Pending)
		return nil
	},
}

func init() {
	outboxReplayCmd.Flags().Int("limit", 100, "maximum results to replay")
	outboxCmd.AddCommand(outboxStatusCmd, outboxReplayCmd)
	rootCmd.AddCommand(outboxCmd)
}
