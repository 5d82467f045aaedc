package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"effcurve/internal/chart"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the efficiency curves for a selection to a PNG file",
		Example: `  effcurve render --q 25000 --l 0 --method II,V --out curves.png`,
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
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")

			repo, ds, err := env.loadDataset()
			if err != nil {
				return err
			}
			defer repo.Close()

			fig, err := chart.Build(ds, env.catalog, sel)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := chart.RenderPNG(fig, f, width, height); err != nil {
				_ = f.Close()
				_ = os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d points -> %s\n", fig.Title, fig.PointCount(), out)
			return nil
		},
	}
	addSelectionFlags(cmd)
	cmd.Flags().Int("width", chart.DefaultWidth, "图片宽度（像素）")
	cmd.Flags().Int("height", chart.DefaultHeight, "图片高度（像素）")
	return cmd
}
