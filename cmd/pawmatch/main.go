package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pawmatch/pawmatch/internal/profile"
	"github.com/pawmatch/pawmatch/plugin/matcher"
	"github.com/pawmatch/pawmatch/plugin/matcher/cache"
	"github.com/pawmatch/pawmatch/plugin/matcher/metrics"
	"github.com/pawmatch/pawmatch/server"
	"github.com/pawmatch/pawmatch/store"
	"github.com/pawmatch/pawmatch/store/db"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "pawmatch",
	Short: "Multi-signal pet sitter recommendation server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.Flags().String("addr", "", "address of the server")
	rootCmd.Flags().Int("port", 8230, "port of the server")
	rootCmd.Flags().String("driver", "", `embedding store driver, "sqlite" or "postgres", empty disables persistence`)
	rootCmd.Flags().String("dsn", "", "embedding store DSN")

	for _, flag := range []string{"mode", "addr", "port", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("pawmatch")
	viper.AutomaticEnv()
}

func run() error {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, closeFn, err := buildEngine(ctx, p)
	if err != nil {
		return err
	}
	defer closeFn()

	return server.New(p, engine).Start(ctx)
}

// buildEngine assembles the engine from the profile: embedding service,
// cache, optional persistence, scorers and fusion config.
func buildEngine(ctx context.Context, p *profile.Profile) (*matcher.Engine, func(), error) {
	cfg := matcher.NewConfigFromProfile(p)
	closeFn := func() {}

	embeddingService, err := matcher.NewEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding service: %w", err)
	}
	if !embeddingService.IsEnabled() {
		slog.Warn("no embedding API key configured, using deterministic fallback vectors only")
	}

	var embeddingStore matcher.EmbeddingStore
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, nil, fmt.Errorf("create store driver: %w", err)
	}
	if driver != nil {
		st, err := store.New(ctx, driver)
		if err != nil {
			return nil, nil, fmt.Errorf("open embedding store: %w", err)
		}
		embeddingStore = st
		closeFn = func() {
			if err := st.Close(); err != nil {
				slog.Error("close embedding store", "error", err)
			}
		}
	}

	collector := metrics.NewCollector()
	provider := matcher.NewEmbeddingProvider(
		embeddingService,
		cache.NewLRUCache(cfg.Cache),
		embeddingStore,
		collector,
	)

	engine, err := matcher.NewEngine(
		cfg,
		provider,
		matcher.NewCollaborativeScorer(&cfg.Collab),
		matcher.NewRerankerService(&cfg.Reranker),
		collector,
	)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}
	return engine, closeFn, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
