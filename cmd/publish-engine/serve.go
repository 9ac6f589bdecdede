package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/adapter/auth"
	"github.com/aiverse-platform/publish-engine/internal/adapter/builder"
	"github.com/aiverse-platform/publish-engine/internal/adapter/events"
	httpadapter "github.com/aiverse-platform/publish-engine/internal/adapter/http"
	"github.com/aiverse-platform/publish-engine/internal/adapter/kubernetes"
	"github.com/aiverse-platform/publish-engine/internal/adapter/loki"
	"github.com/aiverse-platform/publish-engine/internal/adapter/repository"
	"github.com/aiverse-platform/publish-engine/internal/config"
	"github.com/aiverse-platform/publish-engine/internal/port"
	"github.com/aiverse-platform/publish-engine/internal/service"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create missing tables on startup")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		return config.Load()
	}
	return config.Load(envFile)
}

func serve(cfg *config.Config, migrate bool) error {
	logger := slog.Default()

	// 数据库
	db, err := repository.OpenDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if migrate {
		if err := repository.Migrate(db); err != nil {
			return err
		}
	}

	// 构建器：有集群时使用 Kaniko，否则降级为静态构建器
	var (
		appBuilder port.Builder
		logSource  port.BuildLogSource
	)
	cs, k8sErr := kubernetes.NewClientset(cfg.KubeconfigPath)
	if k8sErr != nil {
		logger.Warn("k8s client unavailable, using static builder", "error", k8sErr)
		appBuilder = builder.NewStaticBuilder(cfg.StaticBinaryBaseURL)
	} else {
		kaniko := kubernetes.NewKanikoBuilder(cs, kubernetes.KanikoConfig{
			Namespace:          cfg.KanikoNamespace,
			KanikoImage:        cfg.KanikoImage,
			RegistryBase:       cfg.RegistryBase,
			RegistrySecret:     cfg.RegistrySecret,
			RegistryMirrors:    cfg.RegistryMirrors,
			InsecureRegistries: cfg.InsecureRegistries,
			CacheRepo:          cfg.KanikoCacheRepo,
			HttpProxy:          cfg.BuildHttpProxy,
			NoProxy:            cfg.BuildNoProxy,
			Timeout:            cfg.BuildTimeout,
			PollInterval:       cfg.BuildPollInterval,
			Logger:             logger,
		})
		appBuilder, logSource = kaniko, kaniko
	}

	// 流水线事件：日志 + 可选的 redis 实时推送
	sinks := events.Multi{events.NewLogSink(logger)}
	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sinks = append(sinks, events.NewRedisSink(rdb, logger))
	}

	var logQuerier port.LogQuerier
	if cfg.LokiURL != "" {
		logQuerier = loki.NewClient(cfg.LokiURL, loki.WithLimit(cfg.LokiLimit))
	}

	svc := service.NewPublishService(service.PublishServiceDeps{
		Submissions:     repository.NewSubmissionRepo(db),
		Jobs:            repository.NewJobRepo(db),
		Profiles:        repository.NewProfileRepo(db),
		Assets:          repository.NewAssetRepo(db),
		Identity:        auth.ContextIdentity{},
		Builder:         appBuilder,
		Sink:            sinks,
		LogSource:       logSource,
		LogQuerier:      logQuerier,
		BuildNamespace:  cfg.KanikoNamespace,
		Logger:          logger,
		EventBufferSize: cfg.EventBufferSize,
		FlushTimeout:    cfg.EventFlushTimeout,
	})

	var tokens *auth.TokenManager
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	} else {
		logger.Warn("JWT_SECRET not set, requests are unauthenticated and publishing will be denied")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpadapter.NewRouter(httpadapter.NewSubmissionHandler(svc), tokens),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	return nil
}
