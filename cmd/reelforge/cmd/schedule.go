package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run generation on a cron schedule",
	Long: `Run the generation pipeline for every configured account on the cron
schedule from the configuration. An account still running when its next
slot arrives skips that slot instead of queueing; missed slots are never
caught up.

The process runs until interrupted.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Scheduler.Cron == "" {
		return fmt.Errorf("no scheduler.cron configured")
	}

	deps, err := pipeline.BuildDependencies(cfg, logger)
	if err != nil {
		return err
	}

	sched := scheduler.New(logger)
	jobs := 0
	for _, platform := range models.Platforms() {
		accounts, err := deps.Store.List(platform)
		if err != nil {
			return err
		}
		factory := factoryFor(platform, deps)

		for _, account := range accounts {
			account := account
			platform := platform
			name := fmt.Sprintf("%s/%s", platform, account.Nickname)
			err := sched.AddJob(name, cfg.Scheduler.Cron, func(ctx context.Context) {
				if err := runPipeline(ctx, factory, account, platform, logger); err != nil {
					logger.Error("scheduled generation failed",
						slog.String("job", name),
						slog.String("error", err.Error()))
				}
			})
			if err != nil {
				return err
			}
			jobs++
		}
	}
	if jobs == 0 {
		return fmt.Errorf("no accounts configured; add one with `reelforge accounts add`")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	logger.Info("waiting for scheduled runs",
		slog.Int("jobs", jobs),
		slog.String("cron", cfg.Scheduler.Cron))

	<-ctx.Done()
	sched.Stop()
	return nil
}
