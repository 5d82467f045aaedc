// Package testutil 测试用结果工作簿生成
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Header 仿真输出工作簿的标准表头
var Header = []string{"index", "Q", "L", "point", "FR", "Mean inventory per demand unit"}

// Row 一行结果（method, Q, 存储 L, 工作点, FR, 库存）
type Row struct {
	Method    int
	Q         int
	L         int
	Point     int
	FillRate  float64
	Inventory float64
}

// WriteWorkbook 写出标准结果工作簿，返回文件路径
func WriteWorkbook(t testing.TB, dir, name string, rows []Row) string {
	t.Helper()

	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{r.Method, r.Q, r.L, r.Point, r.FillRate, r.Inventory})
	}
	return WriteRaw(t, dir, name, Header, data)
}

// WriteRaw 按任意表头与单元格写出工作簿
func WriteRaw(t testing.TB, dir, name string, header []string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// Reference 单个 Q 的参考数据：7 个方法 × 存储 L 1..2 × 3 个工作点
func Reference(q int) []Row {
	var rows []Row
	for method := 1; method <= 7; method++ {
		for l := 1; l <= 2; l++ {
			for p := 1; p <= 3; p++ {
				rows = append(rows, Row{
					Method:    method,
					Q:         q,
					L:         l,
					Point:     p,
					FillRate:  0.90 + 0.03*float64(p),
					Inventory: float64(method) + 0.1*float64(l) + 0.5*float64(p) + float64(q)/100000,
				})
			}
		}
	}
	return rows
}

// ReferenceName 参考数据文件名
func ReferenceName(q int) string {
	return fmt.Sprintf("v2_M3_smaller_wyniki_%d.xlsx", q)
}
