package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"effcurve/internal/model"
)

// ReplaceResults 用合并表整体替换索引内容，seq 即表内位置
func (s *Store) ReplaceResults(table *model.Table) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM results`); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM result_columns`); err != nil {
		return fmt.Errorf("failed to clear columns: %w", err)
	}

	colStmt, err := tx.Prepare(`INSERT INTO result_columns (position, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer colStmt.Close()
	for i, name := range table.Columns {
		if _, err := colStmt.Exec(i, name); err != nil {
			return fmt.Errorf("failed to insert column: %w", err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO results (
			seq, method_index, q, l, operating_point,
			fill_rate, mean_inventory, source, cells
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range table.Rows {
		cells, err := json.Marshal(r.Cells)
		if err != nil {
			return fmt.Errorf("failed to encode cells: %w", err)
		}
		if _, err := stmt.Exec(
			i, r.MethodIndex, r.Q, r.L, r.OperatingPoint,
			r.FillRate, r.MeanInventory, r.Source, string(cells),
		); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryTrace 按 (Q, 存储 L, 方法) 查询，按表内顺序返回
func (s *Store) QueryTrace(q, l, method int) ([]model.ResultRow, error) {
	rows, err := s.db.Query(`
		SELECT method_index, q, l, operating_point, fill_rate, mean_inventory, source, cells
		FROM results
		WHERE q = ? AND l = ? AND method_index = ?
		ORDER BY seq
	`, q, l, method)
	if err != nil {
		return nil, fmt.Errorf("query trace failed: %w", err)
	}
	defer rows.Close()

	out := make([]model.ResultRow, 0)
	for rows.Next() {
		var (
			r     model.ResultRow
			cells string
		)
		if err := rows.Scan(&r.MethodIndex, &r.Q, &r.L, &r.OperatingPoint, &r.FillRate, &r.MeanInventory, &r.Source, &cells); err != nil {
			return nil, fmt.Errorf("scan trace failed: %w", err)
		}
		if err := json.Unmarshal([]byte(cells), &r.Cells); err != nil {
			return nil, fmt.Errorf("decode cells failed: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace failed: %w", err)
	}
	return out, nil
}

// InventoryRange 全表平均库存范围（不受筛选影响）
func (s *Store) InventoryRange() (min, max float64, ok bool, err error) {
	var lo, hi sql.NullFloat64
	err = s.db.QueryRow(`SELECT MIN(mean_inventory), MAX(mean_inventory) FROM results`).Scan(&lo, &hi)
	if err != nil {
		return 0, 0, false, fmt.Errorf("query inventory range failed: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return 0, 0, false, nil
	}
	return lo.Float64, hi.Float64, true, nil
}

// CountResults 结果行数
func (s *Store) CountResults() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results failed: %w", err)
	}
	return n, nil
}

// Columns 原始列顺序
func (s *Store) Columns() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM result_columns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query columns failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan columns failed: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ListCombinations 数据中存在的 (Q, L, 方法) 组合及行数
func (s *Store) ListCombinations() ([]model.Combination, error) {
	rows, err := s.db.Query(`
		SELECT q, l, method_index, COUNT(1)
		FROM results
		GROUP BY q, l, method_index
		ORDER BY q, l, method_index
	`)
	if err != nil {
		return nil, fmt.Errorf("query combinations failed: %w", err)
	}
	defer rows.Close()

	var out []model.Combination
	for rows.Next() {
		var c model.Combination
		if err := rows.Scan(&c.Q, &c.L, &c.MethodIndex, &c.Rows); err != nil {
			return nil, fmt.Errorf("scan combinations failed: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combinations failed: %w", err)
	}
	return out, nil
}
