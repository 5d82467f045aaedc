package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"effcurve/internal/model"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Loaded    bool                `json:"loaded"`    // 数据是否可用
	DatasetID string              `json:"datasetId"` // 当前数据集 ID
	LoadedAt  string              `json:"loadedAt"`  // 加载时间
	Rows      int                 `json:"rows"`      // 合并后总行数
	Sources   []model.SourceCount `json:"sources"`   // 每个来源的行数
	Loads     int                 `json:"loads"`     // 实际加载次数
	Error     string              `json:"error,omitempty"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ds, err := h.repo.Get()
	if err != nil {
		c.JSON(http.StatusOK, StatusResponse{
			Loaded: false,
			Loads:  h.repo.Loads(),
			Error:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Loaded:    true,
		DatasetID: ds.ID,
		LoadedAt:  ds.LoadedAt.Format(time.RFC3339),
		Rows:      ds.Table.Len(),
		Sources:   ds.Table.CountBySource(),
		Loads:     h.repo.Loads(),
	})
}

// Reload 丢弃缓存并重新读取工作簿
// POST /api/reload
func (h *Handler) Reload(c *gin.Context) {
	ds, err := h.repo.Reload()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重新加载失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"datasetId": ds.ID,
		"rows":      ds.Table.Len(),
		"loads":     h.repo.Loads(),
	})
}

// GetCatalog 获取控件选项
// GET /api/catalog
func (h *Handler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog)
}

// CombinationItem 数据中存在的组合（L 为用户值）
type CombinationItem struct {
	Q      int    `json:"q"`
	L      int    `json:"l"`
	Method string `json:"method"`
	Rows   int    `json:"rows"`
}

// ListCombinations 列出数据中存在的 (Q, L, 方法) 组合
// GET /api/combinations
func (h *Handler) ListCombinations(c *gin.Context) {
	ds, err := h.repo.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据加载失败: " + err.Error()})
		return
	}

	combos, err := ds.Index.ListCombinations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询组合失败: " + err.Error()})
		return
	}

	items := make([]CombinationItem, 0, len(combos))
	for _, cb := range combos {
		label, ok := h.catalog.LabelOf(cb.MethodIndex)
		if !ok {
			label = strconv.Itoa(cb.MethodIndex)
		}
		items = append(items, CombinationItem{
			Q:      cb.Q,
			L:      h.catalog.UserLeadTime(cb.L),
			Method: label,
			Rows:   cb.Rows,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}
