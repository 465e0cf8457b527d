package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/config"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/database"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/datefilter"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/fetcher"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/logger"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/metadata"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/naming"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/organizer"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/replicate"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/report"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/repository"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/services"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/state"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/telegram"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "2.0.0"

type flags struct {
	configPath string
	since      string
	until      string
	lastRun    bool
	all        bool
	outputDir  string
	noZip      bool
	debug      bool
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "replicate-downloader",
		Short: "Download Replicate predictions and organize their outputs by model",
		Example: `  replicate-downloader --since "2 days ago"
  replicate-downloader --since 2024-01-01 --until 2024-02-01
  replicate-downloader --last-run`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMain(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.since, "since", "s", "", `only predictions created on or after this date ("2024-01-15", "2 days ago")`)
	fl.StringVarP(&f.until, "until", "u", "", "only predictions created on or before this date")
	fl.BoolVarP(&f.lastRun, "last-run", "l", false, "only predictions created since the last successful run")
	fl.BoolVar(&f.all, "all", false, "download all predictions (default)")
	fl.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	fl.StringVar(&f.outputDir, "output-dir", "", "directory for downloaded files (default replicate_outputs_<date>)")
	fl.BoolVar(&f.noZip, "no-zip", false, "do not create a zip archive per model")
	fl.BoolVar(&f.debug, "debug", false, "enable debug logging")

	cmd.MarkFlagsMutuallyExclusive("since", "last-run")
	cmd.MarkFlagsMutuallyExclusive("until", "last-run")
	cmd.MarkFlagsMutuallyExclusive("all", "since")
	cmd.MarkFlagsMutuallyExclusive("all", "until")
	cmd.MarkFlagsMutuallyExclusive("all", "last-run")

	return cmd
}

func runMain(cmd *cobra.Command, f flags) error {
	ctx, cancelFn := context.WithCancel(cmd.Context())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	if cfg.Debug {
		opts := *logger.DefaultOptions
		opts.Level = slog.LevelDebug
		slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &opts)))
	}

	downloader, cleanup, err := setupDownloader(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = downloader.Run(ctx)
	return err
}

func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(f.configPath, time.Now())
	if err != nil {
		return config.Config{}, err
	}

	fl := cmd.Flags()
	switch {
	case f.all:
		cfg.Filter = domain.DateFilter{}
	case fl.Changed("since") || fl.Changed("until") || fl.Changed("last-run"):
		cfg.Filter = domain.DateFilter{Since: f.since, Until: f.until, LastRun: f.lastRun}
	}
	if fl.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if f.noZip {
		cfg.CreateZips = false
	}
	if f.debug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			fmt.Fprintln(os.Stderr, "Find your token at https://replicate.com/account/api-tokens and either")
			fmt.Fprintln(os.Stderr, "  export REPLICATE_API_TOKEN=your_token_here")
			fmt.Fprintln(os.Stderr, "or add REPLICATE_API_TOKEN=your_token_here to a .env file.")
		}
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupDownloader(ctx context.Context, cfg config.Config) (*services.Downloader, func(), error) {
	cleanup := func() {}

	var backend state.Backend = repository.NewFileStateRepository(cfg.StateFile)
	if cfg.DatabaseURL != "" {
		db, err := database.NewDB(ctx, cfg.DatabaseURL, cfg.BunDebug)
		if err != nil {
			slog.WarnContext(ctx, "postgres unavailable, using state file", "file", cfg.StateFile, logger.Err(err))
		} else {
			backend = repository.NewStateRepository(db)
			cleanup = func() { db.Close() }
		}
	}

	client, err := replicate.NewClient(cfg.APIToken,
		replicate.WithBaseURL(cfg.BaseURL),
		replicate.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating replicate client: %w", err)
	}

	namer := naming.NewNamer(cfg.MaxPromptLength)

	deps := services.Dependencies{
		State:    state.NewStore(backend),
		Bounds:   datefilter.NewResolver(time.Now),
		Fetcher:  fetcher.New(client, fetcher.Config{RequestDelay: cfg.RequestDelay, EarlyStop: cfg.EarlyStop}),
		Metadata: metadata.NewWriter(cfg.MetadataDir, namer, time.Now),
		Organizer: organizer.New(client, namer, organizer.Config{
			BaseDir:       cfg.OutputDir,
			DownloadDelay: cfg.DownloadDelay,
			CreateZips:    cfg.CreateZips,
			SkipExisting:  cfg.SkipExisting,
		}),
		Printer: report.NewConsole(os.Stdout, color.NoColor),
	}

	if cfg.NotifyEnabled() {
		n, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Notifier = n
	}

	return services.NewDownloader(deps, services.Options{
		Filter:     cfg.Filter,
		HTMLReport: cfg.HTMLReport,
	}), cleanup, nil
}
