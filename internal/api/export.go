package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"effcurve/internal/chart"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportRequest 导出请求（L 为用户值）
type ExportRequest struct {
	Q       int      `json:"q"`
	L       int      `json:"l"`
	Methods []string `json:"methods"`
}

// ExportResponse 导出响应
type ExportResponse struct {
	Token       string `json:"token"`
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
	Points      int    `json:"points"`
	ExpiresAt   string `json:"expiresAt"`
}

// Export 把当前选择的曲线导出为 Excel，返回一次性下载链接
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	sel := chart.Selection{Q: req.Q, LeadTime: req.L, Methods: chart.SplitMethods(req.Methods)}
	if err := sel.Validate(h.catalog); err != nil {
		writeError(c, err)
		return
	}
	if sel.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": chart.NoSelectionMessage})
		return
	}

	fig, err := h.buildFigure(sel)
	if err != nil {
		writeError(c, err)
		return
	}

	f, err := h.exporter.Export(fig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败: " + err.Error()})
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "写入 Excel 失败: " + err.Error()})
		return
	}

	filename := exportFilename(sel)
	token, expiresAt := h.downloads.put(buf.Bytes(), filename, h.exportTTL)

	c.JSON(http.StatusOK, ExportResponse{
		Token:       token,
		DownloadURL: "/api/export/download/" + token,
		Filename:    filename,
		Points:      fig.PointCount(),
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token"})
		return
	}

	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.filename))
	c.Data(http.StatusOK, xlsxContentType, item.data)
}

func exportFilename(sel chart.Selection) string {
	return fmt.Sprintf("efficiency-curves-Q%d-L%d.xlsx", sel.Q, sel.LeadTime)
}
