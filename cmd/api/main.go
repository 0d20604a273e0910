package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/soloviov/accounthub/internal/config"
	"github.com/soloviov/accounthub/internal/db"
	httpx "github.com/soloviov/accounthub/internal/http"
	"github.com/soloviov/accounthub/internal/observability"
	"github.com/soloviov/accounthub/internal/redisclient"
	"github.com/soloviov/accounthub/migrations"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is opt-in via OTLP_ENDPOINT
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "accounthub", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	// run migrations through the stdlib driver, goose wants *sql.DB
	sqlDB, err := sql.Open("pgx", cfg.DBURL)

	if err != nil {
		log.Error("open db for migrations failed", "err", err)
		os.Exit(1)
	}

	err = migrations.Migrate(sqlDB)

	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	_ = sqlDB.Close()

	// pgx pool for the app itself
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db pool failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)

	err = db.EnsureSeedUser(seedCtx, pool, cfg)

	cancelSeed()

	if err != nil {
		log.Error("seed user failed", "err", err)
		os.Exit(1)
	}

	// redis backs the token denylist
	redisConn := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer redisConn.Close()

	pingCtx, cancelPing := config.WithTimeout(2 * time.Second)

	err = redisConn.Ping(pingCtx)

	cancelPing()

	if err != nil {
		log.Error("redis ping failed", "err", err)
		os.Exit(1)
	}

	// set up routers
	router := httpx.NewRouter(log, pool, redisConn, cfg)

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
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
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

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
