package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"effcurve/internal/loader"
	"effcurve/internal/model"
	"effcurve/internal/store"
)

// Dataset 一次加载得到的合并结果及其查询索引（只读）
type Dataset struct {
	ID       string
	LoadedAt time.Time
	Table    *model.Table
	Index    *store.Store
}

// Trace 实现 chart.TraceSource
func (d *Dataset) Trace(q, l, method int) ([]model.ResultRow, error) {
	return d.Index.QueryTrace(q, l, method)
}

// InventoryRange 实现 chart.TraceSource
func (d *Dataset) InventoryRange() (min, max float64, ok bool, err error) {
	return d.Index.InventoryRange()
}

// Repository 惰性加载、进程内缓存的数据仓库
type Repository struct {
	sources   []loader.Source
	indexPath string
	logger    *slog.Logger

	mu      sync.Mutex
	dataset *Dataset
	retired []*Dataset // 已失效但可能仍被请求持有，Close 时统一释放
	loads   int
}

// Option 仓库选项
type Option func(*Repository)

// WithIndexPath 使用文件型 SQLite 索引（默认内存）
func WithIndexPath(path string) Option {
	return func(r *Repository) { r.indexPath = path }
}

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// New 创建数据仓库（不立即加载）
func New(sources []loader.Source, opts ...Option) *Repository {
	r := &Repository{
		sources: sources,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get 首次调用执行加载，之后返回同一实例；加载失败不缓存
func (r *Repository) Get() (*Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dataset != nil {
		return r.dataset, nil
	}

	ds, err := r.load()
	if err != nil {
		return nil, err
	}
	r.dataset = ds
	r.loads++
	return ds, nil
}

// Invalidate 丢弃缓存，下次 Get 重新读取文件；已发出的 Dataset 仍可查询
func (r *Repository) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dataset == nil {
		return
	}
	r.logger.Info("dataset invalidated", "dataset", r.dataset.ID)
	r.retired = append(r.retired, r.dataset)
	r.dataset = nil
}

// Reload 失效后立即重新加载
func (r *Repository) Reload() (*Dataset, error) {
	r.Invalidate()
	return r.Get()
}

// Loads 实际执行的加载次数
func (r *Repository) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

// Sources 配置的来源
func (r *Repository) Sources() []loader.Source {
	return r.sources
}

// Close 释放当前及已失效数据集的索引
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.dataset != nil {
		errs = append(errs, r.dataset.Index.Close())
		r.dataset = nil
	}
	for _, ds := range r.retired {
		errs = append(errs, ds.Index.Close())
	}
	r.retired = nil
	return errors.Join(errs...)
}

func (r *Repository) load() (*Dataset, error) {
	start := time.Now()

	table, err := loader.Load(r.sources)
	if err != nil {
		return nil, err
	}

	index, err := store.New(r.indexPath)
	if err != nil {
		return nil, fmt.Errorf("open result index: %w", err)
	}
	if err := index.ReplaceResults(table); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("build result index: %w", err)
	}

	ds := &Dataset{
		ID:       uuid.New().String(),
		LoadedAt: time.Now(),
		Table:    table,
		Index:    index,
	}
	r.logger.Info("dataset loaded",
		"dataset", ds.ID,
		"sources", len(r.sources),
		"rows", table.Len(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return ds, nil
}
