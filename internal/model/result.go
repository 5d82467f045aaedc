package model

import "math"

// 结果表固定列名（与仿真输出工作簿表头一致）
const (
	ColumnFillRate      = "FR"
	ColumnMeanInventory = "Mean inventory per demand unit"
)

// KeyColumnCount 复合行键列数：方法、Q、L、工作点
const KeyColumnCount = 4

// ResultRow 单条仿真结果
type ResultRow struct {
	MethodIndex    int     `json:"methodIndex"`    // 方法编号 1..7
	Q              int     `json:"q"`              // 需求量
	L              int     `json:"l"`              // 存储的提前期（用户值 + 1）
	OperatingPoint string  `json:"operatingPoint"` // 同一 (方法, Q, L) 下的工作点序号
	FillRate       float64 `json:"fillRate"`       // 经验满足率 FR
	MeanInventory  float64 `json:"meanInventory"`  // 单位需求平均库存
	Source         string  `json:"source"`         // 来源文件

	// Cells 原始单元格文本，与 Table.Columns 对齐
	Cells []string `json:"-"`
}

// Matches 判断是否命中 (Q, L, 方法) 三元组
func (r ResultRow) Matches(q, l, method int) bool {
	return r.Q == q && r.L == l && r.MethodIndex == method
}

// Table 合并后的结果表，加载后只读
type Table struct {
	Columns []string
	Rows    []ResultRow
}

// Len 行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Filter 按 (Q, 存储 L, 方法) 过滤，保持表内原始顺序
func (t *Table) Filter(q, l, method int) []ResultRow {
	if t == nil {
		return nil
	}
	out := make([]ResultRow, 0)
	for _, r := range t.Rows {
		if r.Matches(q, l, method) {
			out = append(out, r)
		}
	}
	return out
}

// InventoryRange 全表平均库存的最小/最大值，空表返回 ok=false
func (t *Table) InventoryRange() (min, max float64, ok bool) {
	if t.Len() == 0 {
		return 0, 0, false
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, r := range t.Rows {
		min = math.Min(min, r.MeanInventory)
		max = math.Max(max, r.MeanInventory)
	}
	return min, max, true
}

// CountBySource 按来源统计行数（保持来源首次出现的顺序）
func (t *Table) CountBySource() []SourceCount {
	if t == nil {
		return nil
	}
	index := make(map[string]int)
	var out []SourceCount
	for _, r := range t.Rows {
		i, ok := index[r.Source]
		if !ok {
			i = len(out)
			index[r.Source] = i
			out = append(out, SourceCount{Source: r.Source})
		}
		out[i].Rows++
	}
	return out
}

// SourceCount 单个来源的行数
type SourceCount struct {
	Source string `json:"source"`
	Rows   int    `json:"rows"`
}

// Combination 数据中出现的 (Q, L, 方法) 组合
type Combination struct {
	Q           int `json:"q"`
	L           int `json:"l"`
	MethodIndex int `json:"methodIndex"`
	Rows        int `json:"rows"`
}
