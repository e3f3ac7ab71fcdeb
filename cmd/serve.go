package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"medtrain_backend/internal/app"
	"medtrain_backend/pkg/configwatcher"
	"medtrain_backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API together with the background job worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.ForceMigrate, _ = cmd.Flags().GetBool("migrate")
		withWorker, _ := cmd.Flags().GetBool("worker")

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return application.Run(ctx, withWorker)
		})
		g.Go(func() error {
			// 配置热加载失败不影响服务
			if err := configwatcher.WatchConfig(ctx, configDir(cmd), application.Reload); err != nil {
				logger.Log.Warn("Config watcher disabled", zap.Error(err))
			}
			return nil
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	serveCmd.Flags().Bool("worker", true, "在同一进程中消费后台任务")
}
