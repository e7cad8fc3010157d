package cache

import (
	"context"
	"errors"
	"time"
)

// Store 负责管理内存缓存的读写。键通常为上游完整 URL，写入会覆盖旧条目。
type Store interface {
	// Get 返回仍在有效期内的条目；不存在或已过期时返回 ErrNotFound。
	Get(ctx context.Context, key string) (*Entry, error)

	// Put 写入 payload，并产出新的 Entry 描述。opts.TTL 必须大于 0。
	Put(ctx context.Context, key string, payload []byte, opts PutOptions) (*Entry, error)

	// Remove 删除条目，条目不存在时不报错。
	Remove(ctx context.Context, key string) error

	// Len 返回当前存活（未过期）的条目数量，供诊断接口输出。
	Len() int
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	TTL         time.Duration
	ContentType string
}

// Entry 表示一条缓存记录。创建后只读，过期后视为不存在。
type Entry struct {
	Key         string        `json:"key"`
	Payload     []byte        `json:"-"`
	ContentType string        `json:"content_type"`
	InsertedAt  time.Time     `json:"inserted_at"`
	TTL         time.Duration `json:"ttl"`
}

// Expired 判断条目在 now 时刻是否已过期（now - InsertedAt > TTL）。
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

var (
	// ErrNotFound 表示缓存不存在或已过期。
	ErrNotFound = errors.New("cache entry not found")
	// ErrStoreFull 表示已达到条目上限且没有可清理的过期条目。
	ErrStoreFull = errors.New("cache store full")
	// ErrInvalidTTL 表示写入时未提供正的 TTL。
	ErrInvalidTTL = errors.New("cache ttl must be positive")
)
