// Command tutor runs the AI tutoring service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/config"
	"github.com/tutorstack/tutor/httpd"
	"github.com/tutorstack/tutor/pkg/llms/googleai"
	"github.com/tutorstack/tutor/pkg/llms/guard"
	"github.com/tutorstack/tutor/store"
)

var logger = xlog.NewPackageLogger("github.com/tutorstack/tutor", "cmd")

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "tutor",
		Short:         "AI tutor for math, physics and chemistry questions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.KV(xlog.ERROR, "status", "failed", "err", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.INFO)
	}
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))

	model, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.GeminiAPIKey),
		googleai.WithDefaultModel(cfg.GeminiModel),
	)
	if err != nil {
		return err
	}

	guarded := guard.New(model,
		guard.WithRatePerMinute(cfg.RateLimitPerMinute),
		guard.WithFailureThreshold(cfg.CircuitBreakerThreshold),
		guard.WithResetTimeout(cfg.CircuitBreakerTimeout),
	)

	var messageStore store.MessageStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		messageStore = store.NewRedisStore(client, "tutor")
		logger.KV(xlog.INFO, "status", "using_redis_store", "addr", cfg.RedisAddr)
	} else {
		messageStore = store.NewMemoryStore()
		logger.KV(xlog.INFO, "status", "using_memory_store")
	}

	withStore := agents.WithStore(messageStore)
	tut := agents.NewTutor(
		agents.NewClassifier(guarded),
		agents.NewMathAgent(guarded, withStore),
		agents.NewPhysicsAgent(guarded, withStore),
		agents.NewChemistryAgent(guarded, withStore),
	)

	srv := httpd.NewServer(cfg, tut)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
