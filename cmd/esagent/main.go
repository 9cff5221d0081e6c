package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"esagent/internal/ai"
	"esagent/internal/cache"
	"esagent/internal/config"
	"esagent/internal/es"
	"esagent/internal/handler"
	"esagent/internal/job"
	"esagent/internal/middleware"
	"esagent/internal/repo"
	"esagent/internal/schedule"
	"esagent/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "esagent",
		Short: "natural-language question answering over elasticsearch",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the esagent http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			answer, err := app.pipeline.Resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(answer.Text)
			return nil
		},
	}

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "interactive question loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			return runRepl(cmd.Context(), app)
		},
	}

	rootCmd.AddCommand(runCmd, askCmd, replCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

type app struct {
	pipeline  *service.Pipeline
	store     cache.Store
	cacheRepo *repo.QueryCacheRepo
	cfg       *config.Config
}

func buildApp(cfg *config.Config) (*app, error) {
	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
	if err != nil {
		return nil, fmt.Errorf("init ai embed provider: %w", err)
	}
	gen := ai.NewGenerator(provider, cfg.AI.Model)
	if len(cfg.AI.Fallbacks) > 0 {
		entries := []ai.GeneratorEntry{{Name: cfg.AI.Model, Generator: gen}}
		for _, fb := range cfg.AI.Fallbacks {
			fbProvider, err := ai.NewProvider(fb.Provider, fb.Data)
			if err != nil {
				return nil, fmt.Errorf("init fallback provider %s: %w", fb.Provider, err)
			}
			entries = append(entries, ai.GeneratorEntry{
				Name:      fb.Model,
				Generator: ai.NewGenerator(fbProvider, fb.Model),
			})
		}
		gen = ai.NewGroupGenerator(entries)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel)
	manager := ai.NewManager(gen, gen, gen, embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
	})

	esClient, err := es.NewClient(cfg.ES)
	if err != nil {
		return nil, err
	}
	schemas := service.NewSchemaService(esClient, time.Duration(cfg.ES.SchemaCacheTTLMinutes)*time.Minute)

	var (
		store     cache.Store
		cacheRepo *repo.QueryCacheRepo
	)
	switch cfg.Cache.Backend {
	case "postgres":
		db, err := repo.Open(cfg.Cache.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open cache db: %w", err)
		}
		if err := repo.ApplyMigrations(db); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		cacheRepo = repo.NewQueryCacheRepo(db)
		store = cacheRepo
	default:
		store = cache.NewMemoryStore()
	}

	pipeline := service.NewPipeline(manager, store, esClient, schemas, cfg.Cache.Threshold)
	return &app{pipeline: pipeline, store: store, cacheRepo: cacheRepo, cfg: cfg}, nil
}

func runServer(cfg *config.Config) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Strings("es_addresses", cfg.ES.Addresses),
	)

	deps := handler.RouterDeps{
		Ask: handler.NewAskHandler(a.pipeline),
	}
	if a.cacheRepo != nil {
		deps.Cache = handler.NewCacheHandler(a.cacheRepo, cfg.AI.EmbedModel)
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewCacheCleanupJob(a.store, cfg.Cache.MaxAgeDays)
	if err := scheduler.AddJob(cleanup, cfg.Schedule.CacheCleanup); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	go func() {
		_ = scheduler.TriggerNow(cleanup.Name())
	}()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runRepl(ctx context.Context, a *app) error {
	fmt.Println("esagent interactive mode. Ask a question, or type 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			return nil
		}
		answer, err := a.pipeline.Resolve(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("\nAgent: %s\n", answer.Text)
		fmt.Println(strings.Repeat("-", 50))
	}
}
