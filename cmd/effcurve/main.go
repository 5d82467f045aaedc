package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"effcurve/internal/catalog"
	"effcurve/internal/config"
	"effcurve/internal/loader"
	"effcurve/internal/logging"
	"effcurve/internal/repository"
	"effcurve/internal/server"
	"effcurve/internal/util"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "effcurve",
		Short: "Efficiency curve viewer for inventory simulation results",
		Long: `effcurve serves an interactive page that plots fill rate against mean
inventory for the forecasting methods I..VII, filtered by demand quantity
and lead time. Without a subcommand it starts the web server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "配置文件路径（默认为可执行文件同目录下的 config.toml）")
	rootCmd.PersistentFlags().String("data-dir", "", "结果工作簿目录（覆盖配置文件）")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别: trace, debug, info, warn, error")

	// Serve flags
	rootCmd.Flags().Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	rootCmd.Flags().Bool("dev", false, "开发模式")
	rootCmd.Flags().Bool("no-browser", false, "不自动打开浏览器")

	rootCmd.AddCommand(
		newRenderCmd(),
		newExportCmd(),
		newInspectCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// appEnv 各子命令共用的运行环境
type appEnv struct {
	cfg     *config.AppConfig
	info    config.LoadConfigInfo
	logger  *slog.Logger
	catalog *catalog.Catalog
}

func loadEnv(cmd *cobra.Command) (*appEnv, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, info, err := config.LoadConfigWithInfo(path)
	if err != nil {
		if path != "" {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "加载配置失败，使用默认配置: %v\n", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.Data.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}

	return &appEnv{
		cfg:     cfg,
		info:    info,
		logger:  logging.NewLogger(cfg.Log.Level, cmd.ErrOrStderr()),
		catalog: catalog.Default(),
	}, nil
}

func (e *appEnv) dataDir() string {
	return config.ResolveDataDir(e.cfg)
}

func (e *appEnv) newRepository() *repository.Repository {
	sources := loader.SourcesIn(e.dataDir(), e.catalog.Sources)
	return repository.New(sources,
		repository.WithIndexPath(e.cfg.Data.IndexPath),
		repository.WithLogger(e.logger),
	)
}

// loadDataset 打开仓库并立即加载；失败时释放资源
func (e *appEnv) loadDataset() (*repository.Repository, *repository.Dataset, error) {
	repo := e.newRepository()
	ds, err := repo.Get()
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("load results from %s: %w", e.dataDir(), err)
	}
	return repo, ds, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	cfg := env.cfg

	if port, _ := cmd.Flags().GetInt("port"); port > 0 && !env.info.PortSpecified {
		cfg.Server.Port = port
	}
	if dev, _ := cmd.Flags().GetBool("dev"); dev {
		cfg.Server.DevMode = true
	}
	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); noBrowser {
		cfg.Server.OpenBrowser = false
	}

	fmt.Println("==========================================")
	fmt.Printf("  %s\n", env.catalog.Title)
	fmt.Println("==========================================")
	fmt.Printf("数据目录: %s\n", env.dataDir())

	// 启动前加载数据，失败直接退出
	repo, ds, err := env.loadDataset()
	if err != nil {
		return err
	}
	fmt.Printf("已加载 %d 行结果\n", ds.Table.Len())

	srv, err := server.NewServer(cfg, repo, env.catalog, env.logger)
	if err != nil {
		_ = repo.Close()
		return err
	}

	url := util.LocalURL(cfg.Server.Port)
	fmt.Printf("监听地址: %s\n", srv.Addr())

	errCh := make(chan error, 1)
	go func() {
		fmt.Println("服务启动中 ...")
		errCh <- srv.Run()
	}()

	// 打开浏览器
	if !cfg.Server.DevMode && cfg.Server.OpenBrowser {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		_ = repo.Close()
		if err != nil {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	}

	fmt.Println("\n正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		env.logger.Warn("shutdown", "error", err)
	}
	return nil
}
