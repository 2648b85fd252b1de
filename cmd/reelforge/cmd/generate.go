package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/pipeline/core"
	"github.com/reelforge/reelforge/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the content pipeline for one or all accounts",
	Long: `Run the full generation pipeline now.

For video platforms this generates a topic, script, metadata, images,
narration, and subtitles, assembles the final video, and publishes it.
For text platforms it generates and publishes a short post.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("platform", "youtube", "platform (youtube, twitter)")
	generateCmd.Flags().String("account", "", "account ID or nickname")
	generateCmd.Flags().Bool("all", false, "run for every account on the platform")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("platform")
	platform, err := models.ParsePlatform(raw)
	if err != nil {
		return err
	}

	deps, err := pipeline.BuildDependencies(cfg, logger)
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	selector, _ := cmd.Flags().GetString("account")
	accounts, err := selectAccounts(deps.Store, platform, selector, all)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := factoryFor(platform, deps)
	for _, account := range accounts {
		if err := runPipeline(ctx, factory, account, platform, logger); err != nil {
			return err
		}
	}
	return nil
}

// factoryFor picks the stage set for the platform: videos for YouTube,
// short text posts for Twitter.
func factoryFor(platform models.Platform, deps *core.Dependencies) *core.Factory {
	if platform == models.PlatformTwitter {
		return pipeline.NewPostFactory(deps)
	}
	return pipeline.NewVideoFactory(deps)
}

func runPipeline(ctx context.Context, factory *core.Factory, account models.Account, platform models.Platform, logger *slog.Logger) error {
	orch, err := factory.Create(account, platform)
	if err != nil {
		return err
	}

	result, err := orch.Execute(ctx)
	if err != nil {
		return fmt.Errorf("pipeline for %s: %w", account.Nickname, err)
	}

	logger.Info("generation finished",
		slog.String("account", account.Nickname),
		slog.String("video", result.VideoPath),
		slog.String("url", result.PublishedURL),
		slog.Duration("duration", result.Duration))
	return nil
}

// selectAccounts resolves the --account/--all flags against the store.
func selectAccounts(st *store.Store, platform models.Platform, selector string, all bool) ([]models.Account, error) {
	accounts, err := st.List(platform)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no %s accounts configured; add one with `reelforge accounts add`", platform)
	}
	if all {
		return accounts, nil
	}
	if selector == "" {
		if len(accounts) == 1 {
			return accounts, nil
		}
		return nil, fmt.Errorf("multiple %s accounts configured; pass --account or --all", platform)
	}

	for _, a := range accounts {
		if a.ID.String() == selector || strings.EqualFold(a.Nickname, selector) {
			return []models.Account{a}, nil
		}
	}
	return nil, fmt.Errorf("no %s account matches %q", platform, selector)
}
