package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/vetclinic-api/internal/handler/health"
	"github.com/jwalitptl/vetclinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/vetclinic-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	shiftH    Handler
	transferH Handler
	discountH Handler
	healthH   *health.Handler
	metricsH  *prometheus.Handler
	config    RouterConfig
}

type RouterConfig struct {
	RateLimit    rate.Limit
	RateBurst    int
	AllowOrigins []string
	Timeout      time.Duration
	MaxBodySize  int64
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	shiftH Handler,
	transferH Handler,
	discountH Handler,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:    engine,
		auth:      auth,
		shiftH:    shiftH,
		transferH: transferH,
		discountH: discountH,
		healthH:   healthH,
		metricsH:  metricsH,
		config:    config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		metricsH.Middleware(),
		middleware.SecurityHeaders(),
		cors.New(corsConfig(config.AllowOrigins)),
	)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.HeaderXRequestID)
	cfg.ExposeHeaders = []string{middleware.HeaderXRequestID}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)
	r.metricsH.RegisterRoutes(r.engine)

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.SizeLimit(r.config.MaxBodySize),
		middleware.Timeout(r.config.Timeout),
		r.auth.Authenticate(),
	)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})
	api.Use(limiter.RateLimit())

	r.shiftH.RegisterRoutes(api)
	r.transferH.RegisterRoutes(api)
	r.discountH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
