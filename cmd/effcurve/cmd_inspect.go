package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"effcurve/internal/loader"
	"effcurve/internal/model"
)

// inspectReport inspect 的 JSON 输出
type inspectReport struct {
	DataDir      string          `json:"dataDir"`
	DatasetID    string          `json:"datasetId"`
	Rows         int             `json:"rows"`
	Columns      []string        `json:"columns"`
	Sources      []inspectSource `json:"sources"`
	Combinations []inspectCombo  `json:"combinations"`
}

type inspectSource struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

type inspectCombo struct {
	Q      int    `json:"q"`
	L      int    `json:"l"`
	Method string `json:"method"`
	Rows   int    `json:"rows"`
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load the result workbooks and print row counts and available combinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			repo, ds, err := env.loadDataset()
			if err != nil {
				return err
			}
			defer repo.Close()

			// 统计来自 SQLite 索引，与页面查询同源
			rows, err := ds.Index.CountResults()
			if err != nil {
				return err
			}
			columns, err := ds.Index.Columns()
			if err != nil {
				return err
			}
			combos, err := ds.Index.ListCombinations()
			if err != nil {
				return fmt.Errorf("list combinations: %w", err)
			}

			report := inspectReport{
				DataDir:   env.dataDir(),
				DatasetID: ds.ID,
				Rows:      rows,
				Columns:   columns,
				Sources:   sourceReport(repo.Sources(), ds.Table.CountBySource()),
			}
			for _, c := range combos {
				label, ok := env.catalog.LabelOf(c.MethodIndex)
				if !ok {
					label = strconv.Itoa(c.MethodIndex)
				}
				report.Combinations = append(report.Combinations, inspectCombo{
					Q:      c.Q,
					L:      env.catalog.UserLeadTime(c.L),
					Method: label,
					Rows:   c.Rows,
				})
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "Data directory: %s\n", report.DataDir)
			fmt.Fprintf(out, "Dataset: %s\n", report.DatasetID)
			fmt.Fprintf(out, "Total rows: %d\n", report.Rows)
			fmt.Fprintf(out, "Columns: %s\n\n", strings.Join(report.Columns, " | "))

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tROWS\tPATH")
			for _, s := range report.Sources {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Rows, s.Path)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "Q\tL\tMETHOD\tROWS")
			for _, c := range report.Combinations {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", c.Q, c.L, c.Method, c.Rows)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "以 JSON 输出")
	return cmd
}

// sourceReport 按配置顺序列出来源及其行数
func sourceReport(sources []loader.Source, counts []model.SourceCount) []inspectSource {
	byName := make(map[string]int, len(counts))
	for _, c := range counts {
		byName[c.Source] = c.Rows
	}
	out := make([]inspectSource, 0, len(sources))
	for _, src := range sources {
		out = append(out, inspectSource{Name: src.Name, Path: src.Path, Rows: byName[src.Name]})
	}
	return out
}
