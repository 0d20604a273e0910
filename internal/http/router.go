package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/soloviov/accounthub/internal/auth"
	"github.com/soloviov/accounthub/internal/config"
	"github.com/soloviov/accounthub/internal/http/handlers"
	"github.com/soloviov/accounthub/internal/http/middlewares"
	"github.com/soloviov/accounthub/internal/observability"
	"github.com/soloviov/accounthub/internal/redisclient"
	"github.com/soloviov/accounthub/internal/repo/postgres"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, redisConn *redisclient.Client, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// own registry per router so tests can build several engines
	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	}

	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("accounthub"))
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}

		if redisConn != nil {
			if err := redisConn.Ping(ctx); err != nil {
				return err
			}
		}

		return nil
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	tokensRepo := postgres.NewTokensRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	denylist := auth.NewDenylist(redisConn.Raw())

	authMw := middlewares.NewAuthMiddleware(jwtManager, denylist)

	// wire up handlers
	usersHandler := handlers.NewUsersHandler(usersRepo)
	authHandler := handlers.NewAuthHandler(usersRepo, tokensRepo, jwtManager, denylist)

	r.POST("/login", authHandler.Login)

	protected := r.Group("", authMw.RequireAuth())
	protected.POST("/registration", usersHandler.Register)
	protected.POST("/logout", authHandler.Logout)
	protected.GET("/profile", usersHandler.Profile)

	return r
}
