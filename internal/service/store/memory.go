package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"orderrecon/internal/model"
)

// ErrNotFound 报告不存在或已过期
var ErrNotFound = errors.New("report not found")

// ReportStore 对账报告缓存
// 每个报告 ID 只写入一次，之后可被多次读取。
type ReportStore interface {
	Put(ctx context.Context, rows []model.ComparisonRow, summary model.Summary) (string, error)
	Get(ctx context.Context, id string) (*model.Report, error)
}

// NewID 生成不可猜测的报告 ID（128 位随机数，十六进制）
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// MemoryOptions 内存缓存选项
type MemoryOptions struct {
	TTL        time.Duration // 0 表示进程生命周期内有效
	MaxEntries int           // 0 表示不限制
}

// MemoryStore 内存报告缓存
type MemoryStore struct {
	items map[string]memoryEntry
	opts  MemoryOptions
	now   func() time.Time
	mu    sync.RWMutex
}

type memoryEntry struct {
	report    *model.Report
	expiresAt time.Time // 零值表示不过期
}

// NewMemoryStore 创建内存缓存
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		opts:  opts,
		now:   time.Now,
	}
}

// Put 写入报告并返回新 ID
func (s *MemoryStore) Put(_ context.Context, rows []model.ComparisonRow, summary model.Summary) (string, error) {
	now := s.now()
	if rows == nil {
		rows = []model.ComparisonRow{}
	}
	report := &model.Report{
		ID:        NewID(),
		Rows:      rows,
		Summary:   summary,
		CreatedAt: now,
	}
	entry := memoryEntry{report: report}
	if s.opts.TTL > 0 {
		entry.expiresAt = now.Add(s.opts.TTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(now)
	if s.opts.MaxEntries > 0 {
		for len(s.items) >= s.opts.MaxEntries {
			s.evictOldestLocked()
		}
	}
	s.items[report.ID] = entry
	return report.ID, nil
}

// Get 读取报告
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(s.now()) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.report, nil
}

// Count 当前缓存的报告数量（含未清理的过期项）
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (s *MemoryStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if v.expired(now) {
			delete(s.items, k)
		}
	}
}

func (s *MemoryStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range s.items {
		if oldestID == "" || e.report.CreatedAt.Before(oldest) {
			oldestID = id
			oldest = e.report.CreatedAt
		}
	}
	if oldestID != "" {
		delete(s.items, oldestID)
	}
}
