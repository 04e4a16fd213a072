package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"referral-platform/internal/accounts"
	"referral-platform/internal/audit"
	"referral-platform/internal/auth"
	"referral-platform/internal/config"
	"referral-platform/internal/httpapi"
	"referral-platform/internal/obs"
	"referral-platform/internal/rbac"
	"referral-platform/internal/users"
	"referral-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// newHandler builds the services from cfg and in, and returns the CORS-wrapped router.
func newHandler(cfg config.Config, log *slog.Logger, in infra) (http.Handler, error) {
	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, err
	}
	metrics := obs.NewMetrics()
	auditSvc := audit.NewService(in.audit)

	opts := []auth.Option{auth.WithAuditLog(auditSvc), auth.WithRecorder(metrics)}
	if in.denylist != nil {
		opts = append(opts, auth.WithDenylist(in.denylist))
	}
	authSvc, err := auth.NewService(in.users, tokens, opts...)
	if err != nil {
		return nil, err
	}
	accountsSvc, err := accounts.NewService(in.users, authSvc.Hasher(), auditSvc)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	// nil trusts no proxy, so X-Forwarded-For cannot spoof the client IP.
	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())
	r.Use(httpapi.ClientIP())

	registerRoutes(r, routeDeps{
		handlers: httpapi.Handlers{
			Auth:     authSvc,
			Accounts: accountsSvc,
			Cookie:   auth.NewRefreshCookie(cfg.IsProduction(), tokens.RefreshTTL()),
		},
		authMW:  auth.RequireAccessToken(authSvc),
		limiter: httpapi.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		metrics: metrics.Handler(),
		ready:   in.ready,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.HTTP.ClientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	})
	return c.Handler(r), nil
}

type routeDeps struct {
	handlers httpapi.Handlers
	authMW   gin.HandlerFunc
	limiter  *httpapi.RateLimiter
	metrics  http.Handler
	ready    func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := d.ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Error("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.metrics))

	api := r.Group("/api")

	// AUTH routes
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", d.limiter.Middleware(), h.Signup)
		authGroup.POST("/login", d.limiter.Middleware(), h.Login)
		authGroup.POST("/refresh-token", h.RefreshToken)
		authGroup.POST("/logout", d.authMW, h.Logout)
	}

	// USER routes
	// Profile is open to every authenticated role; the rest is admin only.
	usersGroup := api.Group("/users")
	usersGroup.Use(d.authMW)
	{
		usersGroup.GET("/profile", h.GetProfile)
		usersGroup.PUT("/profile", h.UpdateProfile)

		admin := usersGroup.Group("")
		admin.Use(rbac.RequireAnyRole(users.RoleAdmin))
		{
			admin.GET("", h.ListUsers)
			admin.GET("/:id", h.GetUser)
			admin.PUT("/:id", h.UpdateUser)
			admin.DELETE("/:id", h.DeleteUser)
		}
	}
}
