package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Method 预测方法（罗马数字标签 -> 结果表中的整数键）
type Method struct {
	Label       string `yaml:"label" json:"label"`
	Key         int    `yaml:"key" json:"key"`
	Description string `yaml:"description" json:"description"`
}

// Catalog 静态选项表，供页面控件与过滤共同使用
type Catalog struct {
	Title            string   `yaml:"title" json:"title"`
	Intro            string   `yaml:"intro" json:"intro"`
	Sources          []string `yaml:"sources" json:"sources"`
	DemandQuantities []int    `yaml:"demand_quantities" json:"demandQuantities"`
	LeadTimes        []int    `yaml:"lead_times" json:"leadTimes"`
	LeadTimeOffset   int      `yaml:"lead_time_offset" json:"leadTimeOffset"`
	DefaultMethods   []string `yaml:"default_methods" json:"defaultMethods"`
	Methods          []Method `yaml:"methods" json:"methods"`

	byLabel map[string]Method
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default 返回内置选项表（进程内只解析一次）
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog.yaml: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse 解析 YAML 选项表并校验
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	if len(c.Methods) == 0 {
		return errors.New("catalog has no methods")
	}
	if len(c.DemandQuantities) == 0 || len(c.LeadTimes) == 0 {
		return errors.New("catalog needs demand quantities and lead times")
	}

	c.byLabel = make(map[string]Method, len(c.Methods))
	keys := make(map[int]bool, len(c.Methods))
	for _, m := range c.Methods {
		if m.Label == "" {
			return fmt.Errorf("method with key %d has empty label", m.Key)
		}
		if _, dup := c.byLabel[m.Label]; dup {
			return fmt.Errorf("duplicate method label %q", m.Label)
		}
		if keys[m.Key] {
			return fmt.Errorf("duplicate method key %d", m.Key)
		}
		c.byLabel[m.Label] = m
		keys[m.Key] = true
	}
	for _, label := range c.DefaultMethods {
		if _, ok := c.byLabel[label]; !ok {
			return fmt.Errorf("default method %q is not in the catalog", label)
		}
	}
	return nil
}

// Labels 方法标签（目录顺序）
func (c *Catalog) Labels() []string {
	out := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		out = append(out, m.Label)
	}
	return out
}

// KeyOf 标签对应的整数键；页面只提供目录内标签，未知标签返回 0
func (c *Catalog) KeyOf(label string) int {
	return c.byLabel[label].Key
}

// Lookup 查找方法（用于校验外部输入）
func (c *Catalog) Lookup(label string) (Method, bool) {
	m, ok := c.byLabel[label]
	return m, ok
}

// LabelOf 整数键对应的标签
func (c *Catalog) LabelOf(key int) (string, bool) {
	for _, m := range c.Methods {
		if m.Key == key {
			return m.Label, true
		}
	}
	return "", false
}

// StoredLeadTime 用户提前期 -> 结果表中存储的提前期
func (c *Catalog) StoredLeadTime(userL int) int {
	return userL + c.LeadTimeOffset
}

// UserLeadTime 存储的提前期 -> 用户提前期
func (c *Catalog) UserLeadTime(storedL int) int {
	return storedL - c.LeadTimeOffset
}

// ValidDemandQuantity Q 是否为合法选项
func (c *Catalog) ValidDemandQuantity(q int) bool {
	return slices.Contains(c.DemandQuantities, q)
}

// ValidLeadTime 用户提前期是否为合法选项
func (c *Catalog) ValidLeadTime(l int) bool {
	return slices.Contains(c.LeadTimes, l)
}
