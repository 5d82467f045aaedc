package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"effcurve/internal/chart"
)

const (
	StateNoSelection = "no_selection"
	StateRendered    = "rendered"
)

// PNG 尺寸上限
const (
	minImageSize = 100
	maxImageSize = 4000
)

// ChartResponse 图表响应
type ChartResponse struct {
	State     string          `json:"state"`
	Message   string          `json:"message,omitempty"`
	Selection chart.Selection `json:"selection"`
	Points    int             `json:"points"`
	Figure    map[string]any  `json:"figure,omitempty"`
}

// GetChart 按选择生成 plotly 图表
// GET /api/chart?q=25000&l=0&methods=II,V
func (h *Handler) GetChart(c *gin.Context) {
	sel, err := h.selectionFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if sel.Empty() {
		c.JSON(http.StatusOK, ChartResponse{
			State:     StateNoSelection,
			Message:   chart.NoSelectionMessage,
			Selection: sel,
		})
		return
	}

	fig, err := h.buildFigure(sel)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChartResponse{
		State:     StateRendered,
		Selection: sel,
		Points:    fig.PointCount(),
		Figure:    fig.Plotly(),
	})
}

// GetChartPNG 按选择渲染 PNG；未选方法或无数据点时返回 204
// GET /api/chart.png?q=25000&l=0&methods=II&width=1024&height=600
func (h *Handler) GetChartPNG(c *gin.Context) {
	sel, err := h.selectionFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	width, err := sizeQuery(c, "width", chart.DefaultWidth)
	if err != nil {
		writeError(c, err)
		return
	}
	height, err := sizeQuery(c, "height", chart.DefaultHeight)
	if err != nil {
		writeError(c, err)
		return
	}

	if sel.Empty() {
		c.Status(http.StatusNoContent)
		return
	}

	fig, err := h.buildFigure(sel)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderPNG(fig, &buf, width, height); err != nil {
		if errors.Is(err, chart.ErrNothingToRender) {
			c.Status(http.StatusNoContent)
			return
		}
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) buildFigure(sel chart.Selection) (*chart.Figure, error) {
	ds, err := h.repo.Get()
	if err != nil {
		return nil, err
	}
	return chart.Build(ds, h.catalog, sel)
}

// selectionFromQuery 未给出的参数取默认选择；methods 出现但为空表示未选择
func (h *Handler) selectionFromQuery(c *gin.Context) (chart.Selection, error) {
	sel := chart.DefaultSelection(h.catalog)

	if v, ok := c.GetQuery("q"); ok {
		q, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return sel, fmt.Errorf("%w: q=%q", chart.ErrInvalidSelection, v)
		}
		sel.Q = q
	}
	if v, ok := c.GetQuery("l"); ok {
		l, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return sel, fmt.Errorf("%w: l=%q", chart.ErrInvalidSelection, v)
		}
		sel.LeadTime = l
	}
	if values, ok := c.GetQueryArray("methods"); ok {
		sel.Methods = chart.SplitMethods(values)
	}

	return sel, sel.Validate(h.catalog)
}

func sizeQuery(c *gin.Context, name string, def int) (int, error) {
	v, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < minImageSize || n > maxImageSize {
		return 0, fmt.Errorf("%w: %s=%q (allowed %d..%d)", chart.ErrInvalidSelection, name, v, minImageSize, maxImageSize)
	}
	return n, nil
}

// writeError 选择错误返回 400，其余返回 500
func writeError(c *gin.Context, err error) {
	if errors.Is(err, chart.ErrInvalidSelection) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
