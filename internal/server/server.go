package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"effcurve/internal/api"
	"effcurve/internal/catalog"
	"effcurve/internal/chart"
	"effcurve/internal/config"
	"effcurve/internal/logging"
	"effcurve/internal/repository"
)

//go:embed all:web
var webFiles embed.FS

// ShutdownTimeout 优雅关闭等待时间
const ShutdownTimeout = 5 * time.Second

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	repo    *repository.Repository
	catalog *catalog.Catalog
	api     *api.Handler
	page    *template.Template
	logger  *slog.Logger
	httpSrv *http.Server
}

// pageData 首页模板数据
type pageData struct {
	Catalog            *catalog.Catalog
	Selection          chart.Selection
	Selected           map[string]bool
	NoSelectionMessage string
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig, repo *repository.Repository, cat *catalog.Catalog, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	devMode := cfg.Server.DevMode
	if !devMode && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	page, err := template.ParseFS(webFiles, "web/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	ttl := time.Duration(cfg.Export.TTLMinutes) * time.Minute

	s := &Server{
		router:  gin.New(),
		repo:    repo,
		catalog: cat,
		api:     api.NewHandler(repo, cat, ttl),
		page:    page,
		logger:  logger,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes(devMode)

	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	s.router.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		s.router.Use(s.requestLogger())
	}

	// CORS（开发模式下允许其他端口的前端调试）
	if devMode {
		s.router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		})
	}

	// API 路由
	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	// 静态资源
	sub, _ := fs.Sub(webFiles, "web")
	s.router.StaticFS("/static", http.FS(sub))

	// 首页
	s.router.GET("/", s.index)

	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "接口不存在"})
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, "/")
	})
}

func (s *Server) index(c *gin.Context) {
	sel := chart.DefaultSelection(s.catalog)
	selected := make(map[string]bool, len(sel.Methods))
	for _, m := range sel.Methods {
		selected[m] = true
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := s.page.Execute(c.Writer, pageData{
		Catalog:            s.catalog,
		Selection:          sel,
		Selected:           selected,
		NoSelectionMessage: chart.NoSelectionMessage,
	})
	if err != nil {
		s.logger.Error("render page", "error", err)
	}
}

// requestLogger 以 trace 级别记录每个请求
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Log(c.Request.Context(), logging.LevelTrace, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	}
}

// Handler 返回 http.Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// Run 启动服务器，直到 Shutdown 被调用
func (s *Server) Run() error {
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown 优雅关闭并释放数据索引
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	if cerr := s.repo.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
