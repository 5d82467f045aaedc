package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"effcurve/internal/model"
)

// 值列别名
var (
	fillRateAliases      = []string{model.ColumnFillRate, "fill_rate", "fill rate"}
	meanInventoryAliases = []string{model.ColumnMeanInventory, "mean_inventory", "mean inventory"}
)

// 键列表头为空时使用的默认名称（pandas 未命名的索引层）
var defaultKeyNames = [model.KeyColumnCount]string{"index", "Q", "L", "point"}

// ReadWorkbook 读取单个结果工作簿（首个工作表，第一行为表头，前四列为复合键）
func ReadWorkbook(path string) (*model.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceNotFound, path, err)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrSchemaMismatch, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s!%s: %w", filepath.Base(path), sheets[0], err)
	}

	table, err := parseRows(rows, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return table, nil
}

// parseRows 将工作表行解析为结果表
func parseRows(rows [][]string, source string) (*model.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrSchemaMismatch)
	}

	header := padRow(rows[0], len(rows[0]))
	if len(header) < model.KeyColumnCount+2 {
		return nil, fmt.Errorf("%w: header has %d columns, need at least %d", ErrSchemaMismatch, len(header), model.KeyColumnCount+2)
	}
	for i := 0; i < model.KeyColumnCount; i++ {
		if header[i] == "" {
			header[i] = defaultKeyNames[i]
		}
	}

	frIdx, ok := MatchColumn(header, model.KeyColumnCount, fillRateAliases)
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, model.ColumnFillRate)
	}
	invIdx, ok := MatchColumn(header, model.KeyColumnCount, meanInventoryAliases)
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, model.ColumnMeanInventory)
	}

	table := &model.Table{
		Columns: header,
		Rows:    make([]model.ResultRow, 0, len(rows)-1),
	}

	// 合并单元格只有左上角有值，空键沿用上一行
	var prevKeys [model.KeyColumnCount]string
	for i, raw := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(raw) {
			continue
		}
		cells := padRow(raw, len(header))

		for k := 0; k < model.KeyColumnCount; k++ {
			if cells[k] == "" {
				if prevKeys[k] == "" {
					return nil, fmt.Errorf("%w: row %d: missing key %q", ErrSchemaMismatch, rowNum, header[k])
				}
				cells[k] = prevKeys[k]
			}
			prevKeys[k] = cells[k]
		}

		row, err := parseResultRow(cells, frIdx, invIdx)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrSchemaMismatch, rowNum, err)
		}
		row.Source = source
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// parseResultRow 解析单行数据
func parseResultRow(cells []string, frIdx, invIdx int) (model.ResultRow, error) {
	method, err := ParseIntCell(cells[0])
	if err != nil {
		return model.ResultRow{}, fmt.Errorf("method index: %w", err)
	}
	q, err := ParseIntCell(cells[1])
	if err != nil {
		return model.ResultRow{}, fmt.Errorf("Q: %w", err)
	}
	l, err := ParseIntCell(cells[2])
	if err != nil {
		return model.ResultRow{}, fmt.Errorf("L: %w", err)
	}
	fr, err := ParseFloatCell(cells[frIdx])
	if err != nil {
		return model.ResultRow{}, fmt.Errorf("fill rate: %w", err)
	}
	inv, err := ParseFloatCell(cells[invIdx])
	if err != nil {
		return model.ResultRow{}, fmt.Errorf("mean inventory: %w", err)
	}

	return model.ResultRow{
		MethodIndex:    method,
		Q:              q,
		L:              l,
		OperatingPoint: cells[3],
		FillRate:       fr,
		MeanInventory:  inv,
		Cells:          cells,
	}, nil
}
