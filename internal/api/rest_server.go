package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-editor/internal/logging"
	"github.com/annel0/voxel-editor/internal/middleware"
	"github.com/annel0/voxel-editor/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API редактора
type RestServer struct {
	router  *gin.Engine
	svc     *service.EditorService
	port    string
	metrics *ServerMetrics
	logger  *logging.Logger
	server  *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string                 // порт для запуска сервера, ":8090"
	Service  *service.EditorService // редактор
	Registry *prometheus.Registry   // реестр метрик; nil = новый
	Logger   *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8090"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("editor_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("editor_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	rs := &RestServer{
		router:  router,
		svc:     config.Service,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  config.Logger,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)

		types := api.Group("/types")
		types.GET("", rs.handleListTypes)
		types.POST("", rs.handleCreateType)
		types.POST("/:index/clone", rs.handleCloneType)
		types.DELETE("/:index", rs.handleRemoveType)
		types.PATCH("/:index", rs.handleUpdateType)
		types.GET("/:index/textures/:face", rs.handleGetTexture)
		types.PUT("/:index/textures/:face", rs.handlePutTexture)
		types.POST("/:index/textures/:face/generate", rs.handleGenerateTexture)

		api.GET("/catalog", rs.handleGetCatalog)
		api.PUT("/catalog", rs.handlePutCatalog)
		api.POST("/catalog/reset", rs.handleResetCatalog)

		api.GET("/snapshots", rs.handleListSnapshots)
		api.POST("/snapshots/:name", rs.handleSaveSnapshot)
		api.POST("/snapshots/:name/load", rs.handleLoadSnapshot)
		api.DELETE("/snapshots/:name", rs.handleDeleteSnapshot)

		api.GET("/atlas", rs.handleGetAtlas)
		api.GET("/atlas/:material", rs.handleGetAtlasPNG)

		api.GET("/lighting", rs.handleGetLighting)
		api.PUT("/lighting", rs.handlePutLighting)
		api.GET("/script", rs.handleGetScript)
		api.PUT("/script", rs.handlePutScript)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// Handler возвращает http.Handler роутера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику редактора и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	ctx := c.Request.Context()
	set := rs.svc.Atlas(ctx)

	stats := map[string]interface{}{
		"editor": map[string]interface{}{
			"types":      len(rs.svc.Types(ctx)),
			"generation": set.Generation,
			"packed": map[string]int{
				"opaque":   set.Opaque.Packed,
				"alpha":    set.Alpha.Packed,
				"blending": set.Blending.Packed,
			},
			"generators": rs.svc.Generators(),
		},
	}
	if snaps, err := rs.svc.ListSnapshots(ctx); err == nil {
		stats["snapshots"] = len(snaps)
	}

	memoryMB := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()
	stats["server"] = map[string]interface{}{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"server_time": time.Now().Unix(),
	}
	stats["memory_details"] = rs.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// Start запускает REST сервер; возвращает http.ErrServerClosed после Stop
func (rs *RestServer) Start() error {
	rs.server = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	rs.logger.Info("REST API слушает %s", rs.port)
	return rs.server.ListenAndServe()
}

// Stop дожидается завершения активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.server == nil {
		return nil
	}
	return rs.server.Shutdown(ctx)
}

// pathIndex разбирает :index; при ошибке сам отвечает 400
func pathIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Индекс должен быть целым числом",
		})
		return 0, false
	}
	return index, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: message})
}

// fail отвечает ошибкой со статусом по её виду
func (rs *RestServer) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		rs.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

// isEmptyBody: ShouldBindJSON на пустом теле возвращает io.EOF
func isEmptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}
