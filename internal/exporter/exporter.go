package exporter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"effcurve/internal/catalog"
	"effcurve/internal/chart"
	"effcurve/internal/model"
)

const (
	SheetTraces    = "Traces"
	SheetSelection = "Selection"
)

var traceHeader = []string{"Method", "Q", "L", "Operating point", model.ColumnFillRate, model.ColumnMeanInventory, "Source"}

// Exporter 把当前选择的曲线导出为 Excel
type Exporter struct {
	catalog *catalog.Catalog
}

// NewExporter 创建导出器
func NewExporter(cat *catalog.Catalog) *Exporter {
	return &Exporter{catalog: cat}
}

// Export 导出图表数据；曲线点按曲线顺序、行内原始顺序写入
func (e *Exporter) Export(fig *chart.Figure) (*excelize.File, error) {
	if fig == nil {
		return nil, errors.New("no figure to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetTraces); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := e.fillTraces(f, fig); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := e.fillSelection(f, fig); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

func (e *Exporter) fillTraces(f *excelize.File, fig *chart.Figure) error {
	if err := setRow(f, SheetTraces, 1, toAny(traceHeader)); err != nil {
		return err
	}

	row := 2
	for _, t := range fig.Traces {
		for _, r := range t.Rows {
			values := []any{
				t.Name,
				r.Q,
				e.catalog.UserLeadTime(r.L),
				r.OperatingPoint,
				r.FillRate,
				r.MeanInventory,
				r.Source,
			}
			if err := setRow(f, SheetTraces, row, values); err != nil {
				return err
			}
			row++
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(traceHeader))
	if err := f.SetCellStyle(SheetTraces, "A1", last+"1", style); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}
	if err := f.SetColWidth(SheetTraces, "A", last, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func (e *Exporter) fillSelection(f *excelize.File, fig *chart.Figure) error {
	if _, err := f.NewSheet(SheetSelection); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	rows := [][]any{
		{"Title", fig.Title},
		{"Q", fig.Selection.Q},
		{"L", fig.Selection.LeadTime},
		{"Methods", strings.Join(fig.Selection.Methods, ", ")},
		{"Points", fig.PointCount()},
	}
	if fig.XRange != nil {
		rows = append(rows, []any{"X range", fmt.Sprintf("[%.3f, %.3f]", fig.XRange[0], fig.XRange[1])})
	}
	for _, r := range fig.ReferenceLines {
		rows = append(rows, []any{fmt.Sprintf("FR=%g", r.Y), fmt.Sprintf("[%.3f, %.3f]", r.X0, r.X1)})
	}

	for i, r := range rows {
		if err := setRow(f, SheetSelection, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
