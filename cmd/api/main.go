package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/tasktracker/internal/auth"
	"github.com/geocoder89/tasktracker/internal/config"
	"github.com/geocoder89/tasktracker/internal/db"
	httpx "github.com/geocoder89/tasktracker/internal/http"
	"github.com/geocoder89/tasktracker/internal/http/middlewares"
	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/geocoder89/tasktracker/internal/redisclient"
	"github.com/geocoder89/tasktracker/internal/repo/memory"
	"github.com/geocoder89/tasktracker/internal/repo/postgres"
	"github.com/geocoder89/tasktracker/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    "tasktracker-api",
			ServiceVersion: cfg.ServiceVersion,
			Environment:    cfg.Env,
			Endpoint:       cfg.OTLPEndpoint,
			SampleRatio:    cfg.OTelSampleRatio,
		})
		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	stores, closeStores, err := openStores(cfg, prom)
	if err != nil {
		log.Error("store setup failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStores()

	seedCtx, seedCancel := config.WithTimeout(5 * time.Second)
	if err := db.EnsureAdminUser(seedCtx, stores.users, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	seedCancel()

	var limits middlewares.Counter
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, pingCancel := config.WithTimeout(2 * time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			// the limiter fails open, so keep going
			log.Warn("redis unreachable, rate limits will not be enforced until it recovers", "addr", cfg.RedisAddr, "err", err)
		}
		pingCancel()

		limits = redisclient.NewBreaker(rdb, redisclient.BreakerConfig{})
	}

	var draining atomic.Bool

	jwt := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Auth:     service.NewAuthService(stores.users, jwt, prom),
		Tasks:    service.NewTaskService(stores.tasks),
		Tokens:   jwt,
		Ping:     stores.ping,
		Draining: draining.Load,
		Limits:   limits,
		Prom:     prom,
		Gatherer: reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")
	draining.Store(true)

	ctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}

type storeSet struct {
	users interface {
		service.UserStore
		db.AdminUserStore
	}
	tasks service.TaskStore
	ping  func() error
}

func openStores(cfg config.Config, prom *observability.Prom) (storeSet, func(), error) {
	if cfg.StoreDriver == "memory" {
		s := memory.NewStore()
		return storeSet{users: s.Users(), tasks: s.Tasks()}, func() {}, nil
	}

	pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return storeSet{}, nil, fmt.Errorf("connect: %w", err)
	}

	ctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return storeSet{}, nil, fmt.Errorf("migrate: %w", err)
	}

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	return storeSet{
		users: postgres.NewUsersRepo(pool, prom),
		tasks: postgres.NewTasksRepo(pool, prom),
		ping:  ping,
	}, pool.Close, nil
}
