package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/babywise/internal/profile"
	"github.com/hrygo/babywise/plugin/ai/advice"
	"github.com/hrygo/babywise/plugin/ai/aitime"
	"github.com/hrygo/babywise/plugin/ai/router"
	"github.com/hrygo/babywise/plugin/ai/session"
	"github.com/hrygo/babywise/server"
	"github.com/hrygo/babywise/server/ai"
	"github.com/hrygo/babywise/server/service/routine"
	"github.com/hrygo/babywise/store"
	"github.com/hrygo/babywise/store/cache"
	"github.com/hrygo/babywise/store/db"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := buildServer(ctx, p)
			if err != nil {
				return err
			}
			if err := s.Start(ctx); err != nil {
				s.Shutdown(context.Background())
				return errors.Wrap(err, "failed to start server")
			}
			printGreetings(p)

			<-ctx.Done()
			s.Shutdown(context.Background())
			return nil
		},
	}
}

func buildServer(ctx context.Context, p *profile.Profile) (*server.Server, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}

	storeInstance := store.New(dbDriver, p, newCache(ctx, p))
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}

	loc := p.Location()
	sessions := session.NewSessionRecovery(session.NewSessionStore(storeInstance.Cache(), session.DefaultTTL))
	routineService := routine.NewService(
		storeInstance,
		storeInstance.Cache(),
		router.NewClassifier(aitime.NewParser(loc)),
		newAdvisor(ctx, p),
		sessions,
		routine.Config{
			Location:        loc,
			DefaultLocale:   p.DefaultLocale,
			SummaryTTL:      p.SummaryCacheTTL,
			RecentEventsTTL: p.RecentEventsTTL,
		},
	)

	s, err := server.NewServer(ctx, p, storeInstance, routineService)
	if err != nil {
		_ = storeInstance.Close()
		return nil, errors.Wrap(err, "failed to create server")
	}
	return s, nil
}

// newCache builds the in-memory L1 and, when configured, the Redis L2.
// An unreachable Redis leaves the server on L1 only.
func newCache(ctx context.Context, p *profile.Profile) cache.Cache {
	l1 := cache.NewMemoryCache(cache.DefaultMemoryConfig())
	if !p.IsRedisEnabled() {
		return cache.NewTieredCache(l1, nil, p.RecentEventsTTL)
	}

	l2, err := cache.NewRedisCache(ctx, &cache.RedisConfig{
		Addr:         p.RedisAddr,
		Password:     p.RedisPassword,
		DB:           p.RedisDB,
		KeyPrefix:    "babywise:",
		DefaultTTL:   p.SummaryCacheTTL,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache only", "addr", p.RedisAddr, "error", err)
		return cache.NewTieredCache(l1, nil, p.RecentEventsTTL)
	}
	return cache.NewTieredCache(l1, l2, p.RecentEventsTTL)
}

// newAdvisor returns the LLM backed generator, or nil for the apology fallback.
func newAdvisor(ctx context.Context, p *profile.Profile) advice.AdviceGenerator {
	if !p.IsAIEnabled() {
		slog.Info("advice generation disabled")
		return nil
	}
	provider, err := ai.NewProvider(ai.NewConfigFromProfile(p))
	if err != nil {
		slog.Warn("failed to create advice provider", "error", err)
		return nil
	}
	if err := provider.Validate(ctx); err != nil {
		slog.Warn("advice provider validation failed, continuing", "model", provider.Model(), "error", err)
	}
	return advice.NewLLMGenerator(provider)
}
