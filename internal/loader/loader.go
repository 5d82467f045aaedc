package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"effcurve/internal/model"
)

var (
	// ErrSourceNotFound 结果文件不存在
	ErrSourceNotFound = errors.New("source not found")
	// ErrSchemaMismatch 表头缺列、键不完整或各来源表头不一致
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Source 单个输入来源
type Source struct {
	Name string
	Path string
}

// SourcesIn 在数据目录下定位固定文件名
func SourcesIn(dir string, names []string) []Source {
	out := make([]Source, 0, len(names))
	for _, n := range names {
		out = append(out, Source{Name: n, Path: filepath.Join(dir, n)})
	}
	return out
}

// Load 读取全部来源并合并；任一来源失败则整体失败
func Load(sources []Source) (*model.Table, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", ErrSourceNotFound)
	}

	tables := make([]*model.Table, 0, len(sources))
	for _, src := range sources {
		t, err := ReadWorkbook(src.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", src.Name, err)
		}
		if src.Name != "" {
			for i := range t.Rows {
				t.Rows[i].Source = src.Name
			}
		}
		tables = append(tables, t)
	}
	return Combine(tables...)
}

// Combine 按行拼接（不去重），要求表头一致
func Combine(tables ...*model.Table) (*model.Table, error) {
	if len(tables) == 0 {
		return &model.Table{}, nil
	}

	first := normalizedHeader(tables[0].Columns)
	total := 0
	for i, t := range tables {
		if !slices.Equal(first, normalizedHeader(t.Columns)) {
			return nil, fmt.Errorf("%w: source %d columns %q differ from %q", ErrSchemaMismatch, i+1, t.Columns, tables[0].Columns)
		}
		total += t.Len()
	}

	out := &model.Table{
		Columns: slices.Clone(tables[0].Columns),
		Rows:    make([]model.ResultRow, 0, total),
	}
	for _, t := range tables {
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

func normalizedHeader(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = NormalizeColumnName(c)
	}
	return out
}
