// Package reconcile 记录两个存储之间的不一致并在后台修复
package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Kind 不一致类型
type Kind string

const (
	// KindOrphanObject 对象存在但没有元数据引用
	KindOrphanObject Kind = "orphan_object"
	// KindDanglingMetadata 元数据存在但对象缺失
	KindDanglingMetadata Kind = "dangling_metadata"
)

// DefaultMemoryLedgerSize 内存账本最多保留的条目数
const DefaultMemoryLedgerSize = 10000

// Entry 账本条目
type Entry struct {
	ID         string    `json:"id" mapstructure:"id"`
	Kind       Kind      `json:"kind" mapstructure:"kind"`
	ImageID    string    `json:"image_id" mapstructure:"image_id"`
	UserID     string    `json:"user_id" mapstructure:"user_id"`
	StorageKey string    `json:"storage_key" mapstructure:"storage_key"`
	Reason     string    `json:"reason" mapstructure:"reason"`
	RecordedAt time.Time `json:"recorded_at" mapstructure:"recorded_at"`
	Attempts   int       `json:"attempts" mapstructure:"attempts"`
}

// EntryID 同一对象的重复上报合并为一条
func EntryID(kind Kind, storageKey string) string {
	return string(kind) + ":" + storageKey
}

// Ledger 不一致账本
type Ledger interface {
	// Record 写入或合并条目，已存在时保留首次记录时间
	Record(ctx context.Context, e Entry) error
	// List 按记录时间从早到晚返回，limit <= 0 表示全部
	List(ctx context.Context, limit int) ([]Entry, error)
	// Resolve 删除条目，不存在不报错
	Resolve(ctx context.Context, id string) error
}

// prepare 补全 ID 与记录时间
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = EntryID(e.Kind, e.StorageKey)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	return e
}

// MemoryLedger 进程内账本，超出容量时淘汰最早的条目
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
	max     int
}

// NewMemoryLedger 创建内存账本
func NewMemoryLedger(max int) *MemoryLedger {
	if max <= 0 {
		max = DefaultMemoryLedgerSize
	}
	return &MemoryLedger{
		entries: make(map[string]*Entry),
		max:     max,
	}
}

func (l *MemoryLedger) Record(ctx context.Context, e Entry) error {
	e = prepare(e)

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[e.ID]; ok {
		e.RecordedAt = existing.RecordedAt
		if e.Attempts == 0 {
			e.Attempts = existing.Attempts
		}
		*existing = e
		return nil
	}

	for len(l.entries) >= l.max && len(l.order) > 0 {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.entries, oldest)
	}

	l.entries[e.ID] = &e
	l.order = append(l.order, e.ID)
	return nil
}

func (l *MemoryLedger) List(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemoryLedger) Resolve(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[id]; !ok {
		return nil
	}
	delete(l.entries, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len 当前条目数
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
