package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/config"
	"liyu1981.xyz/speaker-energy-service/pkg/db"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	energyGrpc "liyu1981.xyz/speaker-energy-service/pkg/grpc"
	energyHttp "liyu1981.xyz/speaker-energy-service/pkg/http"
	"liyu1981.xyz/speaker-energy-service/pkg/kv"
	"liyu1981.xyz/speaker-energy-service/pkg/mq"
	"liyu1981.xyz/speaker-energy-service/pkg/realtime"
)

func newAppOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newDatabase,
			newStore,
			newHub,
			newPublishers,
			newEnergy,
			newLimiters,
			newRestfulServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(startHTTP, startGRPC),
	)
}

func newLogger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameServer)
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.Database.Type {
	case "memory":
		return db.UseMemorySqliteDialector(), nil
	case "postgres":
		return db.UsePostgresDialector(cfg.Database.DSN)
	case "file":
		return db.UseSqliteDialectorAt(cfg.Database.Path), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}
}

func newDatabase(cfg *config.Config) (*db.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	return db.GetInstance(dialector), nil
}

func newStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (kv.Store, error) {
	ttl := config.MustDuration(cfg.Cache.TTL)

	if cfg.Cache.Backend != "redis" {
		store, err := kv.NewMemoryStore(cfg.Cache.Capacity)
		if err != nil {
			return nil, err
		}
		logger.Info("Using in-process realtime cache", zap.Int("capacity", cfg.Cache.Capacity))
		return store, nil
	}

	store, err := kv.OpenRedis(kv.RedisConfig{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  config.MustDuration(cfg.Redis.DialTimeout),
		ReadTimeout:  config.MustDuration(cfg.Redis.ReadTimeout),
		WriteTimeout: config.MustDuration(cfg.Redis.WriteTimeout),
		TTL:          ttl,
		KeyPrefix:    cfg.Cache.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("Using redis realtime cache", zap.String("addr", cfg.Redis.Addr))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func newHub(lc fx.Lifecycle) *realtime.Hub {
	hub := realtime.NewHub()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			hub.Close()
			return nil
		},
	})
	return hub
}

func newPublishers(lc fx.Lifecycle, cfg *config.Config, hub *realtime.Hub, logger *zap.Logger) (energy.Publishers, error) {
	publishers := energy.Publishers{hub}
	if !cfg.AMQP.Enabled {
		return publishers, nil
	}

	conn, err := mq.Dial(cfg.AMQP.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	publisher, err := mq.NewPublisher(conn, cfg.AMQP.Exchange)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp publisher: %w", err)
	}
	logger.Info("Publishing lifecycle events", zap.String("exchange", cfg.AMQP.Exchange))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return errors.Join(publisher.Close(), conn.Close())
		},
	})
	return append(publishers, publisher), nil
}

func newEnergy(lc fx.Lifecycle, cfg *config.Config, database *db.DB, store kv.Store, publishers energy.Publishers, logger *zap.Logger) (*energy.Energy, error) {
	e, err := energy.New(energy.NewGateway(database), store, energy.Options{
		Policy:                      cfg.Ingestion.Policy,
		SampleInterval:              cfg.SampleInterval(),
		BatteryPersistInterval:      config.MustDuration(cfg.Ingestion.BatteryPersistInterval),
		BatteryDiscrepancyThreshold: cfg.Session.BatteryDiscrepancyThreshold,
	})
	if err != nil {
		return nil, err
	}
	e.WithServices(energy.ServiceOpts{Events: publishers})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := e.SyncMetrics(ctx); err != nil {
				// gauges catch up on the next lifecycle change
				logger.Warn("Failed to sync metrics", zap.Error(err))
			}
			return nil
		},
	})
	return e, nil
}

func newLimiters(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *energy.SpeakerLimiters {
	limiters := energy.NewSpeakerLimiters(rate.Limit(cfg.Limiter.Rate), cfg.Limiter.Burst)

	idle := config.MustDuration(cfg.Limiter.IdleTTL)
	if idle <= 0 {
		return limiters
	}

	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(idle)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if removed := limiters.Sweep(idle); removed > 0 {
							logger.Debug("Swept idle speaker limiters", zap.Int("removed", removed))
						}
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(done)
			return nil
		},
	})
	return limiters
}

func newRestfulServer(cfg *config.Config, e *energy.Energy, limiters *energy.SpeakerLimiters, hub *realtime.Hub) *energyHttp.RestfulServer {
	rs := &energyHttp.RestfulServer{
		Server:   gin.Default(),
		Energy:   e,
		Limiters: limiters,
		Hub:      hub,
	}
	if cfg.AdminGuardEnabled() {
		rs.Auth = energyHttp.NewAdminAuth(cfg.Auth.JWTSecret, cfg.Auth.AdminRole)
	}
	rs.Setup()
	return rs
}

func startHTTP(lc fx.Lifecycle, cfg *config.Config, rs *energyHttp.RestfulServer, logger *zap.Logger) {
	server := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: rs.Server,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			listener, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", server.Addr, err)
			}
			logger.Info("HTTP server listening", zap.String("addr", server.Addr))
			go func() {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

func startGRPC(lc fx.Lifecycle, cfg *config.Config, e *energy.Energy, limiters *energy.SpeakerLimiters, logger *zap.Logger) {
	if cfg.Server.GRPCAddr == "" {
		logger.Info("gRPC server disabled")
		return
	}

	server := (&energyGrpc.EnergyServer{Energy: e, Limiters: limiters}).NewServer()

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Server.GRPCAddr, err)
			}
			logger.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Error("gRPC server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-ctx.Done():
				server.Stop()
			}
			return nil
		},
	})
}
