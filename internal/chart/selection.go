package chart

import (
	"errors"
	"fmt"
	"strings"

	"effcurve/internal/catalog"
)

// ErrInvalidSelection 选项不在目录内
var ErrInvalidSelection = errors.New("invalid selection")

// Selection 用户选择：需求量、用户提前期（0/1）、方法标签（按选择顺序）
type Selection struct {
	Q        int      `json:"q"`
	LeadTime int      `json:"l"`
	Methods  []string `json:"methods"`
}

// DefaultSelection 页面初始选择
func DefaultSelection(cat *catalog.Catalog) Selection {
	return Selection{
		Q:        cat.DemandQuantities[0],
		LeadTime: cat.LeadTimes[0],
		Methods:  append([]string(nil), cat.DefaultMethods...),
	}
}

// Empty 未选择任何方法
func (s Selection) Empty() bool {
	return len(s.Methods) == 0
}

// Validate 校验选项；未选方法是合法状态
func (s Selection) Validate(cat *catalog.Catalog) error {
	if !cat.ValidDemandQuantity(s.Q) {
		return fmt.Errorf("%w: Q=%d not in %v", ErrInvalidSelection, s.Q, cat.DemandQuantities)
	}
	if !cat.ValidLeadTime(s.LeadTime) {
		return fmt.Errorf("%w: L=%d not in %v", ErrInvalidSelection, s.LeadTime, cat.LeadTimes)
	}
	seen := make(map[string]bool, len(s.Methods))
	for _, m := range s.Methods {
		if _, ok := cat.Lookup(m); !ok {
			return fmt.Errorf("%w: unknown method %q", ErrInvalidSelection, m)
		}
		if seen[m] {
			return fmt.Errorf("%w: method %q selected twice", ErrInvalidSelection, m)
		}
		seen[m] = true
	}
	return nil
}

// SplitMethods 解析方法参数：支持重复参数与逗号分隔，去掉空项
func SplitMethods(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
