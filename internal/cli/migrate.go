package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinoosan/tesouraria/internal/config"
	pgstore "github.com/tinoosan/tesouraria/internal/storage/postgres"
	sqlitestore "github.com/tinoosan/tesouraria/internal/storage/sqlite"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			switch backend := cfg.ResolvedBackend(); backend {
			case config.BackendPostgres:
				err = pgstore.Migrate(cfg.PostgresDSN())
			case config.BackendSQLite:
				err = sqlitestore.Migrate(cfg.Storage.SQLitePath)
			default:
				return fmt.Errorf("nothing to migrate for the %s backend", backend)
			}
			if err != nil {
				return err
			}
			logger.Info("migrations applied", "backend", cfg.ResolvedBackend())
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
