package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/comic-harvester/internal/config"
	"github.com/Sternrassler/comic-harvester/pkg/cache"
	"github.com/Sternrassler/comic-harvester/pkg/client"
	"github.com/Sternrassler/comic-harvester/pkg/gate"
	"github.com/Sternrassler/comic-harvester/pkg/harvest"
	"github.com/Sternrassler/comic-harvester/pkg/logging"
	"github.com/Sternrassler/comic-harvester/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "harvester: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging())

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Error().Err(err).Msg("Harvest failed")
		stop()
		os.Exit(1)
	}
}

// run performs one harvest and writes the report to out. Nothing is written
// to out when the run fails.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger := logging.NewLogger("main")

	clientCfg := client.Config{
		BaseURL:         cfg.BaseURL,
		CollectionsPath: cfg.CollectionsPath,
		ItemsPath:       cfg.ItemsPath,
		DetailsPath:     cfg.DetailsPath,
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.RequestTimeout,
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("Response cache enabled")
		clientCfg.Cache = cache.NewManager(redisClient, cfg.CacheTTL)
	}

	api, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer api.Close()

	g, err := gate.New(gate.Config{
		MaxInFlight:       cfg.MaxInFlight,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create gate: %w", err)
	}
	defer g.Close()

	h, err := harvest.New(api, g, harvest.Config{CollectionSet: cfg.CollectionSet})
	if err != nil {
		return fmt.Errorf("create harvester: %w", err)
	}

	report, err := h.Run(ctx)
	if err != nil {
		return err
	}

	if err := harvest.WriteReport(out, report, cfg.Format()); err != nil {
		return err
	}

	if cfg.PushgatewayURL != "" {
		// A failed push does not invalidate a report already written.
		err := metrics.Push(context.WithoutCancel(ctx), metrics.PushConfig{
			URL:      cfg.PushgatewayURL,
			Grouping: map[string]string{"collection_set": cfg.CollectionSet},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Metrics push failed")
		} else {
			logger.Debug().Str("url", cfg.PushgatewayURL).Msg("Metrics pushed")
		}
	}
	return nil
}
