package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"character-creator/internal/metrics"
	"character-creator/internal/service"
)

// HealthChecker reports whether the backing store is reachable. *sql.DB satisfies it.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// HandlerConfig collects the dependencies of Handler.
type HandlerConfig struct {
	Users         service.UserService
	Characters    service.CharacterService
	Exports       service.ExportService
	Authenticator service.Authenticator
	Health        HealthChecker
	Metrics       *metrics.Metrics
	Logger        *logrus.Logger
	// ExportBucket is echoed in export listings; empty when exports are disabled.
	ExportBucket string
	CORSOrigin   string
	RateLimit    int
	RateWindow   time.Duration
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users      service.UserService
	characters service.CharacterService
	exports    service.ExportService
	authn      service.Authenticator
	health     HealthChecker
	metrics    *metrics.Metrics
	log        *logrus.Logger
	bucket     string
	corsOrigin string
	limiter    *ipRateLimiter
	started    time.Time
}

func NewHandler(cfg HandlerConfig) *Handler {
	setupValidation()

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Handler{
		users:      cfg.Users,
		characters: cfg.Characters,
		exports:    cfg.Exports,
		authn:      cfg.Authenticator,
		health:     cfg.Health,
		metrics:    cfg.Metrics,
		log:        logger,
		bucket:     cfg.ExportBucket,
		corsOrigin: cfg.CORSOrigin,
		limiter:    newIPRateLimiter(cfg.RateLimit, cfg.RateWindow),
		started:    time.Now(),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), requestLogger(h.log, h.metrics), corsMiddleware(h.corsOrigin))

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})

	limited := router.Group("", rateLimitMiddleware(h.limiter))
	limited.GET("/", h.index)

	api := limited.Group("/api")
	{
		api.GET("/health", h.healthCheck)

		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", h.register)
		authRoutes.POST("/login", h.login)
		authRoutes.POST("/refresh", h.refresh)

		session := authRoutes.Group("", h.requireAuth())
		session.GET("/profile", h.getProfile)
		session.PUT("/profile", h.updateProfile)
		session.POST("/change-password", h.changePassword)
		session.POST("/logout", h.logout)
		session.GET("/verify", h.verify)

		characters := api.Group("/characters", h.requireAuth())
		characters.POST("", h.createCharacter)
		characters.GET("", h.listMyCharacters)
		characters.GET("/my", h.listMyCharacters)
		characters.GET("/public", h.listPublicCharacters)
		characters.GET("/search", h.searchCharacters)
		characters.GET("/stats", h.characterStats)
		characters.POST("/export", h.exportCharacters)
		characters.GET("/exports", h.listExports)
		characters.DELETE("/exports", h.deleteExports)
		characters.GET("/:id", h.getCharacter)
		characters.PUT("/:id", h.updateCharacter)
		characters.DELETE("/:id", h.deleteCharacter)
		characters.POST("/:id/clone", h.cloneCharacter)
		characters.POST("/:id/abilities", h.addAbility)
		characters.POST("/:id/items", h.addItem)

		admin := api.Group("/admin", h.requireAuth(), h.requireAdmin())
		admin.GET("/users", h.listUsers)
		admin.POST("/users/:username/activate", h.activateUser)
		admin.POST("/users/:username/deactivate", h.deactivateUser)
	}
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Character Creator API",
		"status":  "operational",
		"endpoints": gin.H{
			"auth":       "/api/auth",
			"characters": "/api/characters",
			"health":     "/api/health",
			"metrics":    "/metrics",
		},
	})
}

func (h *Handler) healthCheck(c *gin.Context) {
	resp := gin.H{
		"timestamp": formatTime(time.Now()),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.PingContext(ctx); err != nil {
			h.log.WithError(err).Warn("health check failed")
			resp["success"] = false
			resp["status"] = "unhealthy"
			resp["database"] = "disconnected"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	resp["success"] = true
	resp["status"] = "healthy"
	resp["database"] = "connected"
	c.JSON(http.StatusOK, resp)
}
