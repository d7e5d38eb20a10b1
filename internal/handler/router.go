package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"packsend-service/internal/handler/api"
	"packsend-service/internal/handler/middleware"
	"packsend-service/internal/infra/metrics"
	"packsend-service/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Lock     *api.LockHandler
	PackSend *api.PackSendHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, m *metrics.Metrics, h Handlers) {
	setupMiddleware(engine, cfg, logger, m)
	setupRoutes(engine, m, h)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(logger, cfg.Log))
	engine.Use(middleware.Metrics(m))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, m *metrics.Metrics, h Handlers) {
	engine.GET("/health", healthCheck)
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	actor := []gin.HandlerFunc{middleware.RequireActor()}

	apiGroup := engine.Group("/api")
	{
		addRoutes(apiGroup.Group("/transfers/:id"), []route{
			{Method: http.MethodGet, Path: "/lock", Handler: h.Lock.Status},
			{Method: http.MethodPost, Path: "/lock", Handler: h.Lock.Acquire, Mw: actor},
			{Method: http.MethodPost, Path: "/lock/heartbeat", Handler: h.Lock.Heartbeat, Mw: actor},
			{Method: http.MethodDelete, Path: "/lock", Handler: h.Lock.Release, Mw: actor},
			{Method: http.MethodPost, Path: "/takeovers", Handler: h.Lock.RequestTakeover, Mw: actor},
			{Method: http.MethodPost, Path: "/pack-send", Handler: h.PackSend.Submit, Mw: actor},
		})

		addRoutes(apiGroup.Group("/takeovers/:id"), []route{
			{Method: http.MethodPost, Path: "/respond", Handler: h.Lock.RespondTakeover, Mw: actor},
			{Method: http.MethodDelete, Path: "", Handler: h.Lock.CancelTakeover, Mw: actor},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		g.Handle(r.Method, r.Path, h)
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
