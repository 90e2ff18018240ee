package handlers

import (
	"log/slog"
	"time"

	"github.com/OkarFabianTheWise/nifes/internal/attendance"
	"github.com/OkarFabianTheWise/nifes/internal/members"
	"github.com/OkarFabianTheWise/nifes/internal/sessions"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequestLogger logs one line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP())
	}
}

// CORS allows the configured frontend origin. "*" allows any origin.
func CORS(origin string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cors.New(cfg)
}

// NewEngine builds the router with recovery, logging, CORS and every route.
func NewEngine(h *Handler, corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger()), CORS(corsOrigin))
	RegisterRoutes(r, h)
	return r
}

// New wires the member directory, session registry, ledger and scan
// resolver over db.
func New(db *gorm.DB, renderer sessions.Renderer, frontendURL string, log *slog.Logger) *Handler {
	dir := members.NewDirectory(db)
	reg := sessions.NewRegistry(db, renderer, frontendURL)
	ledger := attendance.NewLedger(db)
	return &Handler{
		Members:    dir,
		Sessions:   reg,
		Attendance: ledger,
		Resolver:   attendance.NewResolver(dir, reg, ledger),
		Log:        log,
	}
}
