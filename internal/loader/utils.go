package loader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名：去除首尾空白、换行，压缩空格，转小写
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\t", " ")
	name = spaceRe.ReplaceAllString(name, " ")
	return strings.ToLower(name)
}

// MatchColumn 在表头中查找第一个命中别名的列，返回列索引
func MatchColumn(header []string, from int, aliases []string) (int, bool) {
	for i := from; i < len(header); i++ {
		n := NormalizeColumnName(header[i])
		for _, a := range aliases {
			if n == NormalizeColumnName(a) {
				return i, true
			}
		}
	}
	return -1, false
}

// ParseFloatCell 解析数值单元格，支持千分位逗号与逗号小数点；单个逗号后恰好三位且整数部分非零时无法区分，报错
func ParseFloatCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// 千分位
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		// 多个逗号只能是千分位
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		idx := strings.Index(s, ",")
		lead := strings.TrimLeft(s[:idx], "+-")
		if len(s)-idx-1 == 3 && lead != "0" && lead != "" {
			// "1,500" 既可能是 1500 也可能是 1.5
			return 0, fmt.Errorf("ambiguous decimal separator %q", s)
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// ParseIntCell 解析整数键单元格（允许 "2.0" 这类整值浮点）
func ParseIntCell(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	v, err := ParseFloatCell(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(v), nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func padRow(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}
