package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ShareFlow/internal/project"
)

// Options configures the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	RatePerSec  float64
	Burst       int
}

// NewRouter builds the gin engine serving the project API.
func NewRouter(svc *project.Service, db Pinger, log *zap.SugaredLogger, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	NewHealthHandler("shareflow", opts.Version, db).RegisterRoutes(r)

	v1 := r.Group("/api/v1", RateLimit(opts.RatePerSec, opts.Burst))
	NewHandler(svc).Register(v1.Group("/projects"))
	return r
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
