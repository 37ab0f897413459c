package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/PxPatel/limit-matching-engine/config"
	"github.com/PxPatel/limit-matching-engine/internal/logger"
	"github.com/PxPatel/limit-matching-engine/internal/matching"
	"github.com/PxPatel/limit-matching-engine/internal/sequencer"
	"github.com/PxPatel/limit-matching-engine/internal/storage"
	"github.com/PxPatel/limit-matching-engine/internal/storage/redis"
	"github.com/PxPatel/limit-matching-engine/internal/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("engine exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := matching.ParseMatchPolicy(cfg.Engine.LimitMatchPolicy)
	if err != nil {
		return err
	}

	log.Info("starting limit matching engine",
		zap.Strings("markets", cfg.Engine.Markets),
		zap.Stringer("policy", policy),
		zap.Bool("sequencer", cfg.Sequencer.Enabled),
	)

	engine := matching.NewEngine(
		matching.WithLogger(log),
		matching.WithMatchPolicy(policy),
		matching.WithFillStore(buildFillStore(ctx, cfg, log)),
	)
	defer func() {
		if err := engine.Close(); err != nil {
			log.Error("failed to close fill store", zap.Error(err))
		}
	}()

	var pairs []types.TradingPair
	for _, market := range cfg.Engine.Markets {
		pair, err := types.ParseTradingPair(market)
		if err != nil {
			return err
		}
		if err := engine.AddNewMarket(pair); err != nil {
			return err
		}
		pairs = append(pairs, pair)
	}

	var submitter sequencer.Submitter
	if cfg.Sequencer.Enabled {
		seq := sequencer.New(engine, cfg.Sequencer.BufferSize, log)
		defer seq.Stop()
		submitter = seq
	} else {
		submitter = sequencer.NewInline(engine)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = startMetricsServer(cfg.Metrics.Port, log)
	}

	s := &session{
		submitter: submitter,
		timeout:   cfg.Sequencer.SubmitTimeout,
		log:       log,
	}
	if err := s.replay(ctx, pairs[0]); err != nil {
		return err
	}

	for _, pair := range engine.Markets() {
		depth, err := engine.Depth(pair, 10)
		if err != nil {
			return err
		}
		log.Info("book depth",
			zap.Stringer("pair", pair),
			zap.Any("bids", depth.Bids),
			zap.Any("asks", depth.Asks),
		)
	}

	recent, err := engine.RecentFills(ctx, 20)
	if err != nil {
		log.Warn("failed to read recent fills", zap.Error(err))
	} else {
		log.Info("recent fills", zap.Int("count", len(recent)), zap.Any("fills", recent))
	}

	if metricsSrv == nil {
		return nil
	}

	// Keep serving metrics until interrupted
	<-ctx.Done()
	log.Info("shutting down metrics server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Engine.ShutdownTimeout)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}

func startMetricsServer(port string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Info("metrics server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// buildFillStore layers the configured fill stores. Memory comes first so
// reads never wait on Redis. Returns nil when no store is enabled.
func buildFillStore(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.FillStore {
	var stores []storage.FillStore

	if cfg.Memory.Enabled {
		stores = append(stores, storage.NewInMemoryFillStore(cfg.Memory.MaxFills))
		log.Info("in-memory fill store enabled", zap.Int("max_fills", cfg.Memory.MaxFills))
	}

	if cfg.Redis.Enabled {
		redisStore, err := redis.NewFillStore(ctx, redis.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			TLSEnabled:   cfg.Redis.TLSEnabled,
			MaxFills:     cfg.Redis.MaxFills,
			FillChannel:  cfg.Redis.FillChannel,
		})
		if err != nil {
			log.Warn("failed to connect to redis, continuing without fill publishing", zap.Error(err))
		} else {
			log.Info("redis fill store connected",
				zap.String("host", cfg.Redis.Host),
				zap.Int("port", cfg.Redis.Port),
				zap.String("channel", redisStore.Channel()),
			)
			stores = append(stores, redisStore)
		}
	}

	switch len(stores) {
	case 0:
		return nil
	case 1:
		return stores[0]
	}
	return storage.NewCompositeFillStore(stores...)
}
