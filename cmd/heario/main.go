package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chiuchau-cyril/heario/internal/cache"
	"github.com/chiuchau-cyril/heario/internal/config"
	"github.com/chiuchau-cyril/heario/internal/fetcher"
	"github.com/chiuchau-cyril/heario/internal/pipeline"
	"github.com/chiuchau-cyril/heario/internal/search"
	"github.com/chiuchau-cyril/heario/internal/server"
	"github.com/chiuchau-cyril/heario/internal/store"
	"github.com/chiuchau-cyril/heario/internal/summarizer"
	"github.com/chiuchau-cyril/heario/internal/task"
	"github.com/chiuchau-cyril/heario/internal/tts"
)

var (
	logger     *zap.Logger
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "heario",
	Short: "heario - AI-summarized news with audio playback",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel)
		return err
	},
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// newFetcher assembles the reader transport, cache, and the configured
// concurrency strategy.
func newFetcher() fetcher.ContentFetcher {
	extractor := fetcher.NewReaderExtractor(cfg.Reader.BaseURL, cfg.Reader.APIKey)
	client := fetcher.NewClient(extractor, cache.New(cfg.Reader.CacheTTL), cfg.Pipeline.FetchTimeout, logger)

	if cfg.Pipeline.Strategy == "pool" {
		return fetcher.NewPoolFetcher(client, cfg.Pipeline.Workers)
	}
	return fetcher.NewGroupFetcher(client, cfg.Pipeline.Workers)
}

func newOrchestrator(st store.Store, reg *task.Registry) *pipeline.Orchestrator {
	searcher := search.NewNewsAPIClient(cfg.NewsAPI.BaseURL, cfg.NewsAPI.APIKey, logger)
	gemini := summarizer.NewGeminiClient("", cfg.Gemini.Model, cfg.Gemini.APIKey)
	sum := summarizer.New(gemini, logger)
	return pipeline.New(searcher, newFetcher(), sum, st, reg, logger)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewHybridStore(cfg.Store.RedisAddr, cfg.Store.BadgerPath)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		reg := task.NewRegistry(cfg.Pipeline.MaxTasks)
		orch := newOrchestrator(st, reg)
		speech := tts.NewGoogleClient("", cfg.TTS.APIKey)

		srv := server.NewServer(st, reg, orch, speech, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	},
}

var (
	searchPageSize int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one search pipeline and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewHybridStore(cfg.Store.RedisAddr, cfg.Store.BadgerPath)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		reg := task.NewRegistry(cfg.Pipeline.MaxTasks)
		orch := newOrchestrator(st, reg)

		final, err := orch.Run(cmd.Context(), args[0], searchPageSize)
		if err != nil {
			return err
		}
		return printJSON(final)
	},
}

var (
	headlinesCountry  string
	headlinesCategory string
)

var headlinesCmd = &cobra.Command{
	Use:   "headlines",
	Short: "Run the top-headlines pipeline and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewHybridStore(cfg.Store.RedisAddr, cfg.Store.BadgerPath)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		reg := task.NewRegistry(cfg.Pipeline.MaxTasks)
		orch := newOrchestrator(st, reg)

		final, err := orch.RunHeadlines(cmd.Context(), headlinesCountry, headlinesCategory, searchPageSize)
		if err != nil {
			return err
		}
		return printJSON(final)
	},
}

var rssCmd = &cobra.Command{
	Use:   "rss [feed-url]",
	Short: "Run the pipeline over an RSS/Atom feed and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewHybridStore(cfg.Store.RedisAddr, cfg.Store.BadgerPath)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		reg := task.NewRegistry(cfg.Pipeline.MaxTasks)
		orch := newOrchestrator(st, reg)
		feed := search.NewRSSSource(logger)

		final, err := orch.RunFeed(cmd.Context(), feed, args[0])
		if err != nil {
			return err
		}
		return printJSON(final)
	},
}

var fetchEngine string

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Fetch one article's text and print a preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var extractor fetcher.Extractor
		switch fetchEngine {
		case "reader":
			extractor = fetcher.NewReaderExtractor(cfg.Reader.BaseURL, cfg.Reader.APIKey)
		case "readability":
			extractor = fetcher.NewReadabilityExtractor()
		default:
			return fmt.Errorf("unknown engine %q", fetchEngine)
		}

		client := fetcher.NewClient(extractor, nil, 30*time.Second, logger)
		content := client.FetchOne(cmd.Context(), args[0])
		if content == "" {
			return fmt.Errorf("no usable content for %s", args[0])
		}

		preview := []rune(content)
		if len(preview) > 300 {
			preview = preview[:300]
		}
		fmt.Println(string(preview))
		return nil
	},
}

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently stored summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Metadata-only mode: no badger lock, redis alone serves listings.
		st, err := store.NewHybridStore(cfg.Store.RedisAddr, "")
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		defer st.Close()

		records, err := st.FindRecent(cmd.Context(), recentLimit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s  %s\n    %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Title, r.URL)
		}
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a yaml config file")

	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 0, "Candidates to request per run")
	headlinesCmd.Flags().IntVar(&searchPageSize, "page-size", 0, "Candidates to request per run")
	headlinesCmd.Flags().StringVar(&headlinesCountry, "country", "hk", "Headlines country code")
	headlinesCmd.Flags().StringVar(&headlinesCategory, "category", "", "Headlines category")
	fetchCmd.Flags().StringVar(&fetchEngine, "engine", "reader", "Extraction engine: reader or readability")
	recentCmd.Flags().IntVar(&recentLimit, "limit", 10, "How many records to list")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(headlinesCmd)
	rootCmd.AddCommand(rssCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(recentCmd)

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
