package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToRender 既无曲线点也无参考线
var ErrNothingToRender = errors.New("nothing to render")

const (
	DefaultWidth  = 1024
	DefaultHeight = 600
)

// traceStyle 折线 + 点
func traceStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    4,
	}
}

// referenceStyle 灰色点线
func referenceStyle() gochart.Style {
	return gochart.Style{
		StrokeColor:     gochart.ColorAlternateGray,
		StrokeWidth:     1,
		StrokeDashArray: []float64{2, 3},
	}
}

// RenderPNG 使用 go-chart 渲染静态图；空曲线不参与绘制
func RenderPNG(fig *Figure, w io.Writer, width, height int) error {
	if fig == nil {
		return ErrNothingToRender
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	xr, ok := pngXRange(fig)
	if !ok {
		return ErrNothingToRender
	}

	ylo, yhi := math.Inf(1), math.Inf(-1)
	series := make([]gochart.Series, 0, len(fig.Traces)+len(fig.ReferenceLines))
	for i, t := range fig.Traces {
		if t.Empty() {
			continue
		}
		for _, y := range t.Y {
			ylo, yhi = math.Min(ylo, y), math.Max(yhi, y)
		}
		col := drawing.ColorFromHex(Colorway[i%len(Colorway)][1:])
		series = append(series, gochart.ContinuousSeries{
			Name:    t.Name,
			XValues: t.X,
			YValues: t.Y,
			Style:   traceStyle(col),
		})
	}
	for _, r := range fig.ReferenceLines {
		// 裁剪到当前 X 轴范围内
		x0, x1 := math.Max(r.X0, xr[0]), math.Min(r.X1, xr[1])
		if x0 >= x1 {
			continue
		}
		ylo, yhi = math.Min(ylo, r.Y), math.Max(yhi, r.Y)
		series = append(series, gochart.ContinuousSeries{
			Name:    fmt.Sprintf("FR=%g", r.Y),
			XValues: []float64{x0, x1},
			YValues: []float64{r.Y, r.Y},
			Style:   referenceStyle(),
		})
	}
	if len(series) == 0 {
		return ErrNothingToRender
	}

	ch := gochart.Chart{
		Title:      fig.Title,
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           fig.XAxisTitle,
			Range:          &gochart.ContinuousRange{Min: xr[0], Max: xr[1]},
			ValueFormatter: fixedFormatter(3),
		},
		YAxis: gochart.YAxis{
			Name:           fig.YAxisTitle,
			Range:          &gochart.ContinuousRange{Min: ylo - AxisPadding, Max: yhi + AxisPadding},
			ValueFormatter: fixedFormatter(3),
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.LegendLeft(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

// pngXRange 优先使用选中曲线的范围，全部为空时退回参考线范围
func pngXRange(fig *Figure) ([2]float64, bool) {
	if fig.XRange != nil {
		return *fig.XRange, fig.XRange[1] > fig.XRange[0]
	}
	if len(fig.ReferenceLines) > 0 {
		r := fig.ReferenceLines[0]
		return [2]float64{r.X0, r.X1}, r.X1 > r.X0
	}
	return [2]float64{}, false
}

func fixedFormatter(digits int) gochart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return fmt.Sprintf("%.*f", digits, f)
		}
		return fmt.Sprintf("%v", v)
	}
}
