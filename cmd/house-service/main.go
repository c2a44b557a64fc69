package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/casino-house/internal/game"
	"github.com/radieske/casino-house/internal/house"
	hhttp "github.com/radieske/casino-house/internal/house-service/http"
	"github.com/radieske/casino-house/internal/house-service/producer"
	hcache "github.com/radieske/casino-house/internal/house/cache"
	"github.com/radieske/casino-house/internal/house/repo"
	"github.com/radieske/casino-house/internal/shared/cache"
	"github.com/radieske/casino-house/internal/shared/config"
	"github.com/radieske/casino-house/internal/shared/db"
	"github.com/radieske/casino-house/internal/shared/kafka"
	"github.com/radieske/casino-house/internal/shared/logger"
	"github.com/radieske/casino-house/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	feePolicy, err := house.ParseFeePolicy(cfg.House.FeePolicy)
	if err != nil {
		log.Fatal("fee policy", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []house.Option{
		house.WithLogger(log),
		house.WithMetrics(house.NewMetrics(reg)),
		house.WithFeePolicy(feePolicy),
	}

	// Store: Postgres quando configurado, memória para rodar local
	var (
		store house.Store
		pg    *sql.DB
	)
	if cfg.PostgresDSN != "" {
		pg, err = db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		p := repo.NewPostgres(pg)
		if err := p.EnsureSchema(ctx); err != nil {
			log.Fatal("postgres schema", zap.Error(err))
		}
		store = p
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory store")
		store = house.NewMemStore()
	}

	// Cache de aprovação de jogos
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, house.WithApprovalCache(hcache.NewApprovals(rdb, cfg.House.ApprovalCacheTTL)))
	}

	// Eventos de aposta e de saque de fees
	if cfg.KafkaBrokers != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers)
		defer w.Close()
		opts = append(opts, house.WithPublisher(producer.NewKafkaPublisher(w, producer.Topics{
			WagerCreated:  cfg.TopicWagerCreated,
			WagerResolved: cfg.TopicWagerResolved,
			FeesWithdrawn: cfg.TopicFeesWithdrawn,
		})))
	}

	h := house.New(store, cfg.House.Deployer, opts...)
	var apiOpts []hhttp.Option
	if cfg.House.AccountDeposits {
		log.Warn("account deposits route enabled")
		apiOpts = append(apiOpts, hhttp.WithAccountDeposits())
	}
	api := hhttp.NewServer(log, h, game.NewKeeper(h, cfg.House.WagerTTL), apiOpts...)

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, reg, func(ctx context.Context) error {
		if pg != nil {
			if err := pg.PingContext(ctx); err != nil {
				return fmt.Errorf("pg: %w", err)
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	})

	// Servidor HTTP público (API da house)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8084
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api srv", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("house-service stopped")
}
