// Command farmctl runs maintenance tasks against the farmhub database:
// schema migrations, the low-stock scan, harvest exports and token
// cleanup.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/database"
	"github.com/iliyamo/farmhub/internal/logger"
)

// env is what every subcommand shares once config is loaded.
type env struct {
	cfg config.Config
	log *zap.Logger
	dsn string
}

func loadEnv() (*env, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.IsProd(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg: cfg,
		log: log,
		dsn: database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName),
	}, nil
}

func (e *env) open() (*sql.DB, error) {
	db, err := database.Open(e.dsn, database.Pool{MaxOpen: 4})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "farmctl",
		Short:         "Maintenance tasks for the farmhub API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newCheckMaterialsCmd(), newExportHarvestsCmd(), newPurgeTokensCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "farmctl:", err)
		os.Exit(1)
	}
}
