package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"effcurve/internal/chart"
	"effcurve/internal/exporter"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the plotted points for a selection to an Excel workbook",
		Example: `  effcurve export --q 50000 --l 1 --method I --method VII --out curves.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			sel, err := selectionFromFlags(cmd, env.catalog)
			if err != nil {
				return err
			}
			if sel.Empty() {
				return errors.New(chart.NoSelectionMessage)
			}
			out, _ := cmd.Flags().GetString("out")

			repo, ds, err := env.loadDataset()
			if err != nil {
				return err
			}
			defer repo.Close()

			fig, err := chart.Build(ds, env.catalog, sel)
			if err != nil {
				return err
			}

			f, err := exporter.NewExporter(env.catalog).Export(fig)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.SaveAs(out); err != nil {
				return fmt.Errorf("save %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d points -> %s\n", fig.Title, fig.PointCount(), out)
			return nil
		},
	}
	addSelectionFlags(cmd)
	return cmd
}
