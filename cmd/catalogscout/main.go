package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/engine"
	"github.com/IshaanNene/catalogscout/internal/fetcher"
	"github.com/IshaanNene/catalogscout/internal/media"
	"github.com/IshaanNene/catalogscout/internal/storage"
)

var (
	cfgFile       string
	verbose       bool
	outputPath    string
	outputType    string
	imagesDir     string
	concurrent    int
	threshold     = -1.0
	maxImages     = -1
	includeFailed bool
	metricsOut    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalogscout",
		Short: "catalogscout enriches a product catalog with images from a live site",
		Long: `catalogscout locates known products on a retail website, downloads their
images into a local store and writes a normalized product JSON file.

Sources:
  • scan  - fuzzy-match every catalog row on one site page
  • urls  - scrape direct product pages and search result pages
  • books - convert a books CSV export into JSON`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(urlsCmd())
	rootCmd.AddCommand(booksCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addOutputFlags registers the flags shared by the scraping commands.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, jsonl, csv")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "directory for downloaded images")
	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "catalog entries processed in parallel")
	cmd.Flags().Float64Var(&threshold, "threshold", -1, "minimum match score, exclusive (-1 = config default)")
	cmd.Flags().IntVar(&maxImages, "max-images", -1, "images stored per product (-1 = config default)")
	cmd.Flags().BoolVar(&includeFailed, "include-failed", false, "keep unmatched and failed entries in the output")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write run counters in Prometheus text format to this file")
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runSources executes a run over sources and writes its output.
func runSources(cfg *config.Config, logger *slog.Logger, sources []engine.Source) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg.Fetcher, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer httpFetcher.Close()

	downloader, err := media.NewDownloader(cfg.Images, cfg.Fetcher, httpFetcher.Client(), logger)
	if err != nil {
		return fmt.Errorf("create image store: %w", err)
	}

	eng := engine.New(cfg, httpFetcher, downloader, logger)
	result, runErr := eng.Run(ctx, sources)
	if result == nil {
		return runErr
	}

	store, err := storage.NewFileStorage(cfg.Storage.Type, cfg.Storage.OutputPath, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	published := storage.Publishable(result.Records, cfg.Storage.IncludeFailed)
	if err := store.Store(published); err != nil {
		store.Close()
		return fmt.Errorf("store records: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if metricsOut != "" {
		if err := writeMetrics(metricsOut, result); err != nil {
			logger.Warn("failed to write metrics", "path", metricsOut, "error", err)
		}
	}

	logger.Debug("image store", "stats", downloader.Stats())
	printSummary(os.Stdout, cfg, result, len(published))
	return runErr
}

func writeMetrics(path string, result *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := result.Metrics.WritePrometheus(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("catalogscout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Fetcher.Timeout)
			fmt.Printf("  Follow Redirects:  %v (max %d)\n", cfg.Fetcher.FollowRedirects, cfg.Fetcher.MaxRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nMatcher:\n")
			fmt.Printf("  Threshold:         %.2f\n", cfg.Matcher.Threshold)
			fmt.Printf("  Partial Bonus:     %.2f\n", cfg.Matcher.PartialBonus)
			fmt.Printf("  Text Window:       %d-%d runes\n", cfg.Matcher.MinTextLen, cfg.Matcher.MaxTextLen)
			fmt.Printf("\nImages:\n")
			fmt.Printf("  Directory:         %s\n", cfg.Images.Dir)
			fmt.Printf("  Public Prefix:     %s\n", cfg.Images.PublicPrefix)
			fmt.Printf("  Max Per Product:   %d\n", cfg.Images.MaxPerProduct)
			fmt.Printf("  Attempts:          %d (delay %s)\n", cfg.Images.MaxAttempts, cfg.Images.RetryDelay)
			fmt.Printf("  Selectors:         %d configured\n", len(cfg.Images.Selectors))
			fmt.Printf("\nEngine:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Engine.Concurrency)
			fmt.Printf("  Series:            %s\n", cfg.Engine.Series)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("  Include Failed:    %v\n", cfg.Storage.IncludeFailed)
			return nil
		},
	}
	return cmd
}

// setupLogger creates a structured logger. --verbose or a non-empty DEBUG
// environment variable forces debug level.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
	if imagesDir != "" {
		cfg.Images.Dir = imagesDir
	}
	if concurrent > 0 {
		cfg.Engine.Concurrency = concurrent
	}
	if threshold >= 0 {
		cfg.Matcher.Threshold = threshold
	}
	if maxImages >= 0 {
		cfg.Images.MaxPerProduct = maxImages
	}
	if includeFailed {
		cfg.Storage.IncludeFailed = true
	}
}
