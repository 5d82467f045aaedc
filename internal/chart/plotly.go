package chart

import "fmt"

// Colorway plotly_white 模板的配色，PNG 渲染沿用同一顺序
var Colorway = []string{"#636efa", "#EF553B", "#00cc96", "#ab63fa", "#FFA15A", "#19d3f3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52"}

const gridColor = "#EBF0F8"

// Plotly 转换为 plotly.js 的 figure（data + layout）
func (f *Figure) Plotly() map[string]any {
	data := make([]map[string]any, 0, len(f.Traces))
	for _, t := range f.Traces {
		data = append(data, map[string]any{
			"type":      "scatter",
			"mode":      "markers+lines",
			"name":      t.Name,
			"x":         t.X,
			"y":         t.Y,
			"text":      t.Text,
			"hoverinfo": "text",
		})
	}

	xaxis := map[string]any{
		"title":     map[string]any{"text": f.XAxisTitle},
		"gridcolor": gridColor,
	}
	if f.XRange != nil {
		xaxis["range"] = []float64{f.XRange[0], f.XRange[1]}
	} else {
		xaxis["autorange"] = true
	}

	shapes := make([]map[string]any, 0, len(f.ReferenceLines))
	for _, r := range f.ReferenceLines {
		shapes = append(shapes, map[string]any{
			"type": "line",
			"x0":   r.X0,
			"x1":   r.X1,
			"y0":   r.Y,
			"y1":   r.Y,
			"line": map[string]any{"color": "gray", "dash": "dot"},
			"name": fmt.Sprintf("FR=%g", r.Y),
		})
	}

	return map[string]any{
		"data": data,
		"layout": map[string]any{
			"title":         map[string]any{"text": f.Title},
			"xaxis":         xaxis,
			"yaxis":         map[string]any{"title": map[string]any{"text": f.YAxisTitle}, "gridcolor": gridColor},
			"hovermode":     "closest",
			"colorway":      Colorway,
			"paper_bgcolor": "white",
			"plot_bgcolor":  "white",
			"shapes":        shapes,
		},
	}
}
