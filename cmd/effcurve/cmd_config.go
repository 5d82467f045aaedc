package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"effcurve/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, or write it to config.toml with --write",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			write, _ := cmd.Flags().GetBool("write")
			force, _ := cmd.Flags().GetBool("force")

			if !write {
				data, err := config.Encode(env.cfg)
				if err != nil {
					return fmt.Errorf("encode config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			path := env.info.Path
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(env.cfg, path); err != nil {
				return fmt.Errorf("save config %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "配置已写入: %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("write", false, "写入配置文件（--config 指定的路径或可执行文件同目录）")
	cmd.Flags().Bool("force", false, "覆盖已存在的配置文件")
	return cmd
}
