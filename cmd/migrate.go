package cmd

import (
	"medtrain_backend/internal/app"
	"medtrain_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.ForceMigrate = true
		cfg.MigrateOnly = true

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		application.Close()

		logger.Log.Info("数据库迁移完成")
		return nil
	},
}
