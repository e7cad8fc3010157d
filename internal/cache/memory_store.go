package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Options 控制内存缓存的容量与时钟。
type Options struct {
	// MaxEntries 为 0 表示不限制条目数量。
	MaxEntries int
	// Now 用于注入时钟，默认 time.Now。
	Now func() time.Time
}

// NewStore 构建进程内缓存，整站复用一份实例。
func NewStore(opts Options) (Store, error) {
	if opts.MaxEntries < 0 {
		return nil, errors.New("max entries must not be negative")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		entries:    make(map[string]*Entry),
		maxEntries: opts.MaxEntries,
		now:        now,
	}, nil
}

// memoryStore 以 RWMutex 保护 map；并发 miss 各自写入，后写覆盖先写。
type memoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	maxEntries int
	now        func() time.Time
}

func (s *memoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if entry.Expired(s.now()) {
		s.mu.Lock()
		// 重新检查，避免删除在此期间被覆盖写入的新条目。
		if current, ok := s.entries[key]; ok && current == entry {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	copied := *entry
	return &copied, nil
}

func (s *memoryStore) Put(ctx context.Context, key string, payload []byte, opts PutOptions) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("cache key required")
	}
	if opts.TTL <= 0 {
		return nil, ErrInvalidTTL
	}

	entry := &Entry{
		Key:         key,
		Payload:     append([]byte(nil), payload...),
		ContentType: opts.ContentType,
		InsertedAt:  s.now(),
		TTL:         opts.TTL,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.purgeExpiredLocked(entry.InsertedAt)
		if len(s.entries) >= s.maxEntries {
			return nil, ErrStoreFull
		}
	}
	s.entries[key] = entry

	copied := *entry
	return &copied, nil
}

func (s *memoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := 0
	for _, entry := range s.entries {
		if !entry.Expired(now) {
			live++
		}
	}
	return live
}

func (s *memoryStore) purgeExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
}
