package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"effcurve/internal/catalog"
	"effcurve/internal/exporter"
	"effcurve/internal/repository"
)

// DefaultExportTTL 导出下载链接默认有效期
const DefaultExportTTL = 10 * time.Minute

// Handler 效率曲线 API 处理器
type Handler struct {
	repo      *repository.Repository
	catalog   *catalog.Catalog
	exporter  *exporter.Exporter
	exportTTL time.Duration
	downloads *exportDownloadStore
}

// NewHandler 创建 API 处理器；ttl <= 0 时使用默认有效期
func NewHandler(repo *repository.Repository, cat *catalog.Catalog, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = DefaultExportTTL
	}
	return &Handler{
		repo:      repo,
		catalog:   cat,
		exporter:  exporter.NewExporter(cat),
		exportTTL: ttl,
		downloads: newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	router.POST("/reload", h.Reload)

	// 控件选项
	router.GET("/catalog", h.GetCatalog)
	router.GET("/combinations", h.ListCombinations)

	// 图表
	router.GET("/chart", h.GetChart)
	router.GET("/chart.png", h.GetChartPNG)

	// 数据导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)
}
