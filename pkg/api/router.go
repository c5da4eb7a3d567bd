package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/urmzd/hearth/pkg/api/handlers"
)

// Router holds the Gin engine and the automation service behind it
type Router struct {
	engine *gin.Engine
	svc    handlers.Automation
}

// NewRouter creates a new API router
func NewRouter(svc handlers.Automation) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{engine: engine, svc: svc}
	router.setupRoutes()
	return router
}

func (r *Router) setupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(r.svc)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		telemetryHandler := handlers.NewTelemetryHandler(r.svc)
		v1.POST("/telemetry", telemetryHandler.Ingest)
		v1.POST("/telemetry/xml", telemetryHandler.IngestXML)

		gateway := v1.Group("/gateway")
		{
			gateway.POST("/telemetry", telemetryHandler.IngestGateway)
			gateway.GET("/stats", telemetryHandler.GatewayStats)
		}

		actuatorsHandler := handlers.NewActuatorsHandler(r.svc)
		actuators := v1.Group("/actuators")
		{
			actuators.GET("", actuatorsHandler.ListActuators)
			actuators.GET("/:id", actuatorsHandler.GetActuator)
			actuators.POST("/:id/state", actuatorsHandler.SetState)
			actuators.DELETE("/:id/override", actuatorsHandler.ClearOverride)
		}
		v1.GET("/decisions", actuatorsHandler.RecentDecisions)

		eventsHandler := handlers.NewEventsHandler(r.svc)
		v1.GET("/events", eventsHandler.Events)
	}
}

// Handler exposes the engine, for tests and custom servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
