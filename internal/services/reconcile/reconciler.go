package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/storage"
	"github.com/anoixa/image-store/utils"
)

// Report 一轮对账的结果
type Report struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Config 对账参数
type Config struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// Reconciler 周期性处理账本中的孤儿对象与悬挂元数据
type Reconciler struct {
	ledger Ledger
	repo   images.RepositoryInterface
	store  storage.Provider
	cfg    Config

	stopCh   chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// NewReconciler 创建对账器
func NewReconciler(ledger Ledger, repo images.RepositoryInterface, store storage.Provider, cfg Config) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Reconciler{
		ledger: ledger,
		repo:   repo,
		store:  store,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// outcome 单个条目的处理结果
type outcome int

const (
	outcomeResolved outcome = iota // 已一致，仅清除条目
	outcomeRepaired                // 删除了多余的对象或记录
	outcomeFailed
)

// RunOnce 处理一批条目，单个条目失败只累加重试次数
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	entries, err := r.ledger.List(ctx, r.cfg.BatchSize)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	var resolved, repaired, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, e := range entries {
		g.Go(func() error {
			switch r.process(gctx, e) {
			case outcomeResolved:
				resolved.Add(1)
			case outcomeRepaired:
				repaired.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Scanned:  len(entries),
		Resolved: int(resolved.Load()),
		Repaired: int(repaired.Load()),
		Failed:   int(failed.Load()),
	}
	if report.Scanned > 0 {
		log.Printf("[Reconciler] scanned=%d resolved=%d repaired=%d failed=%d",
			report.Scanned, report.Resolved, report.Repaired, report.Failed)
	}
	return report, ctx.Err()
}

func (r *Reconciler) process(ctx context.Context, e Entry) outcome {
	var (
		out outcome
		err error
	)
	switch e.Kind {
	case KindOrphanObject:
		out, err = r.fixOrphanObject(ctx, e)
	case KindDanglingMetadata:
		out, err = r.fixDanglingMetadata(ctx, e)
	default:
		err = fmt.Errorf("unknown entry kind %q", e.Kind)
	}

	if err != nil {
		e.Attempts++
		e.Reason = err.Error()
		if recErr := r.ledger.Record(ctx, e); recErr != nil {
			log.Printf("[Reconciler] failed to update entry %s: %v", utils.SanitizeLogMessage(e.ID), recErr)
		}
		utils.LogIfDevf("[Reconciler] entry %s attempt %d failed: %v", utils.SanitizeLogMessage(e.ID), e.Attempts, err)
		return outcomeFailed
	}

	if err := r.ledger.Resolve(ctx, e.ID); err != nil {
		log.Printf("[Reconciler] failed to resolve entry %s: %v", utils.SanitizeLogMessage(e.ID), err)
		return outcomeFailed
	}
	return out
}

// fixOrphanObject 对象无人引用时删除；元数据仍指向该对象说明条目已过时
func (r *Reconciler) fixOrphanObject(ctx context.Context, e Entry) (outcome, error) {
	if e.ImageID != "" {
		rec, err := r.repo.GetByImageID(ctx, e.ImageID)
		switch {
		case err == nil && rec.StorageKey == e.StorageKey:
			return outcomeResolved, nil
		case err != nil && !errors.Is(err, images.ErrImageNotFound):
			return outcomeFailed, fmt.Errorf("metadata lookup: %w", err)
		}
	}

	if err := r.store.DeleteWithContext(ctx, e.StorageKey); err != nil {
		return outcomeFailed, fmt.Errorf("object delete: %w", err)
	}
	log.Printf("[Reconciler] removed orphan object %s", utils.SanitizeLogMessage(e.StorageKey))
	return outcomeRepaired, nil
}

// fixDanglingMetadata 对象确实缺失时删除元数据记录
func (r *Reconciler) fixDanglingMetadata(ctx context.Context, e Entry) (outcome, error) {
	exists, err := r.store.Exists(ctx, e.StorageKey)
	if err != nil {
		return outcomeFailed, fmt.Errorf("object exists check: %w", err)
	}
	if exists {
		return outcomeResolved, nil
	}

	rec, err := r.repo.GetByImageID(ctx, e.ImageID)
	if err != nil {
		if errors.Is(err, images.ErrImageNotFound) {
			return outcomeResolved, nil
		}
		return outcomeFailed, fmt.Errorf("metadata lookup: %w", err)
	}
	if rec.StorageKey != e.StorageKey {
		return outcomeResolved, nil
	}

	if err := r.repo.DeleteByImageID(ctx, e.ImageID); err != nil && !errors.Is(err, images.ErrImageNotFound) {
		return outcomeFailed, fmt.Errorf("metadata delete: %w", err)
	}
	log.Printf("[Reconciler] removed dangling record %s (key %s)",
		utils.SanitizeLogMessage(e.ImageID), utils.SanitizeLogMessage(e.StorageKey))
	return outcomeRepaired, nil
}

// Start 启动对账器，启动时立即执行一次
func (r *Reconciler) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	utils.SafeGo("reconciler", func() {
		defer close(r.done)

		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		r.runTick()
		for {
			select {
			case <-ticker.C:
				r.runTick()
			case <-r.stopCh:
				return
			}
		}
	})
	utils.LogIfDevf("[Reconciler] Started with interval %v, batch %d, concurrency %d",
		r.cfg.Interval, r.cfg.BatchSize, r.cfg.Concurrency)
}

func (r *Reconciler) runTick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Interval)
	defer cancel()

	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := r.RunOnce(ctx); err != nil && !utils.IsContextError(err) {
		log.Printf("[Reconciler] run failed: %v", err)
	}
}

// Stop 停止对账器并等待当前一轮结束
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	if r.started.Load() {
		<-r.done
	}
}
