package web

import (
	_ "embed"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/httpmiddleware"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/metrics"
)

//go:embed index.html
var indexHTML []byte

// RouterOptions configures NewRouter.
type RouterOptions struct {
	UploadDir       string
	RateLimitPerMin int
	Metrics         *metrics.Metrics
	// MetricsHandler serves /metrics; defaults to the global prometheus handler.
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
	}))
	r.Use(securityHeaders())

	m := opts.Metrics
	limiter := httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).OnLimit(m.RateLimited)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/healthz", h.Healthz)

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	r.POST("/upload/", limiter.GinMiddleware(), h.Upload)
	r.GET("/students", h.ListStudents)
	r.GET("/students/:enrollment", h.GetStudent)

	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}
	r.GET("/data/*filepath", h.DataFile)
	return r
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
