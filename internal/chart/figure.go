package chart

import (
	"fmt"
	"math"

	"effcurve/internal/catalog"
	"effcurve/internal/model"
)

const (
	// AxisPadding X 轴与参考线两端留白
	AxisPadding = 0.005

	XAxisTitle = "Mean inventory per demand unit"
	YAxisTitle = "Empirical FR"

	// NoSelectionMessage 未选方法时的提示
	NoSelectionMessage = "Please select at least one method to generate the plot."
)

// ReferenceLevels 固定满足率参考线
var ReferenceLevels = []float64{0.95, 0.975, 0.99, 0.995}

// TraceSource 曲线数据来源
type TraceSource interface {
	// Trace 返回命中 (Q, 存储 L, 方法) 的行，保持表内顺序
	Trace(q, l, method int) ([]model.ResultRow, error)
	// InventoryRange 全量数据（不受筛选影响）的库存范围
	InventoryRange() (min, max float64, ok bool, err error)
}

// TableSource 直接在合并表上过滤
type TableSource struct {
	Table *model.Table
}

func (s TableSource) Trace(q, l, method int) ([]model.ResultRow, error) {
	return s.Table.Filter(q, l, method), nil
}

func (s TableSource) InventoryRange() (float64, float64, bool, error) {
	min, max, ok := s.Table.InventoryRange()
	return min, max, ok, nil
}

// Trace 一条效率曲线
type Trace struct {
	Name string    `json:"name"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
	Text []string  `json:"text"`

	Rows []model.ResultRow `json:"-"`
}

// Empty 无数据点
func (t Trace) Empty() bool {
	return len(t.X) == 0
}

// ReferenceLine 水平参考线
type ReferenceLine struct {
	Y  float64 `json:"y"`
	X0 float64 `json:"x0"`
	X1 float64 `json:"x1"`
}

// Figure 图表描述
type Figure struct {
	Title          string          `json:"title"`
	Selection      Selection       `json:"selection"`
	Traces         []Trace         `json:"traces"`
	XRange         *[2]float64     `json:"xRange"`
	ReferenceLines []ReferenceLine `json:"referenceLines"`
	XAxisTitle     string          `json:"xAxisTitle"`
	YAxisTitle     string          `json:"yAxisTitle"`
}

// HoverText 单点悬停文本
func HoverText(label string, fillRate, inventory float64) string {
	return fmt.Sprintf("Method %s<br>FR: %.3f<br>Inventory: %.3f", label, fillRate, inventory)
}

// Build 生成图表；未选方法时返回 nil（提示状态）
func Build(src TraceSource, cat *catalog.Catalog, sel Selection) (*Figure, error) {
	if err := sel.Validate(cat); err != nil {
		return nil, err
	}
	if sel.Empty() {
		return nil, nil
	}

	storedL := cat.StoredLeadTime(sel.LeadTime)
	fig := &Figure{
		Title:      fmt.Sprintf("Efficiency Curves for Q = %d, L = %d", sel.Q, sel.LeadTime),
		Selection:  sel,
		Traces:     make([]Trace, 0, len(sel.Methods)),
		XAxisTitle: XAxisTitle,
		YAxisTitle: YAxisTitle,
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, label := range sel.Methods {
		rows, err := src.Trace(sel.Q, storedL, cat.KeyOf(label))
		if err != nil {
			return nil, fmt.Errorf("load trace %s: %w", label, err)
		}

		tr := Trace{
			Name: label,
			X:    make([]float64, 0, len(rows)),
			Y:    make([]float64, 0, len(rows)),
			Text: make([]string, 0, len(rows)),
			Rows: rows,
		}
		for _, r := range rows {
			tr.X = append(tr.X, r.MeanInventory)
			tr.Y = append(tr.Y, r.FillRate)
			tr.Text = append(tr.Text, HoverText(label, r.FillRate, r.MeanInventory))
			lo = math.Min(lo, r.MeanInventory)
			hi = math.Max(hi, r.MeanInventory)
		}
		fig.Traces = append(fig.Traces, tr)
	}

	// 全部曲线为空时交给前端自动缩放
	if !math.IsInf(lo, 1) {
		fig.XRange = &[2]float64{lo - AxisPadding, hi + AxisPadding}
	}

	gmin, gmax, ok, err := src.InventoryRange()
	if err != nil {
		return nil, fmt.Errorf("load inventory range: %w", err)
	}
	if ok {
		for _, level := range ReferenceLevels {
			fig.ReferenceLines = append(fig.ReferenceLines, ReferenceLine{
				Y:  level,
				X0: gmin - AxisPadding,
				X1: gmax + AxisPadding,
			})
		}
	}

	return fig, nil
}

// PointCount 所有曲线点数之和
func (f *Figure) PointCount() int {
	n := 0
	for _, t := range f.Traces {
		n += len(t.X)
	}
	return n
}
