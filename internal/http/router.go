package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/thecmdrunner/swiftube-backend/internal/http/handlers"
	httpMW "github.com/thecmdrunner/swiftube-backend/internal/http/middleware"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log          *logger.Logger
	Metrics      *observability.Metrics
	ServiceName  string
	AllowOrigins []string

	VideoHandler  *httpH.VideoHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestData())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Alive)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	main := r.Group("/main")
	{
		if cfg.VideoHandler != nil {
			main.POST("/getdata", cfg.VideoHandler.Start)
			main.POST("/videos", cfg.VideoHandler.Create)
			main.POST("/videos/batch", cfg.VideoHandler.GetMany)
			main.GET("/videos/:id", cfg.VideoHandler.Get)
		}
	}

	return r
}
