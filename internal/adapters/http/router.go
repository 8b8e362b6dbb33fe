package http

import (
	"context"

	"github.com/dkeye/Attendance/internal/adapters/live"
	"github.com/dkeye/Attendance/internal/app"
	"github.com/dkeye/Attendance/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Session *app.Session
	Status  *app.StatusTracker
	Hub     *live.Hub
	Limiter *app.ScanLimiter
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no secret configured, cookie sessions last for this process only")
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("AttendanceSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{deps: d}
	api := r.Group("/api")
	api.GET("/attendees", h.attendees)
	api.GET("/recent", h.recent)
	api.GET("/stats", h.stats)
	api.GET("/snapshot", h.snapshot)
	api.GET("/roster", h.roster)
	api.GET("/status", h.status)
	api.POST("/check-in", h.checkIn)
	api.GET("/reset/token", h.resetToken)
	api.POST("/reset", h.reset)

	if d.Hub != nil {
		api.GET("/ws", func(c *gin.Context) {
			d.Hub.HandleWS(ctx, c)
		})
	}

	return r
}
