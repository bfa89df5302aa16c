package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himalthapa1/EduConnect/internal/db"
	clog "github.com/himalthapa1/EduConnect/internal/log"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gdb, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
			logger := clog.Module("cli")
			logger.Info().Str("driver", cfg.DatabaseDriver).Msg("migrations applied")
			return nil
		},
	}
}
