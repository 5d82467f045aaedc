package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"effcurve/internal/catalog"
	"effcurve/internal/chart"
)

// addSelectionFlags 注册 --q / --l / --method
func addSelectionFlags(cmd *cobra.Command) {
	cat := catalog.Default()
	def := chart.DefaultSelection(cat)
	cmd.Flags().Int("q", def.Q, "需求量 Q")
	cmd.Flags().Int("l", def.LeadTime, "提前期 L（用户值）")
	cmd.Flags().StringSlice("method", def.Methods,
		fmt.Sprintf("方法标签 (%s)，可重复或逗号分隔（按顺序绘制）", strings.Join(cat.Labels(), ", ")))
	cmd.Flags().StringP("out", "o", "", "输出文件路径")
	_ = cmd.MarkFlagRequired("out")
}

func selectionFromFlags(cmd *cobra.Command, cat *catalog.Catalog) (chart.Selection, error) {
	q, _ := cmd.Flags().GetInt("q")
	l, _ := cmd.Flags().GetInt("l")
	methods, _ := cmd.Flags().GetStringSlice("method")

	sel := chart.Selection{Q: q, LeadTime: l, Methods: chart.SplitMethods(methods)}
	return sel, sel.Validate(cat)
}
