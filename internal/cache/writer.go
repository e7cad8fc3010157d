package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable 表示当前 handler 未注入缓存存储实例。
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Policy 描述单个请求的缓存策略，由路由判定结果映射而来。
type Policy struct {
	Cacheable   bool
	TTL         time.Duration
	ContentType string
}

// StrategyWriter 把 Store 与请求级 Policy 绑定，集中决定是否读写缓存。
type StrategyWriter struct {
	store  Store
	policy Policy
}

// NewStrategyWriter 构造策略感知的读写器。
func NewStrategyWriter(store Store, policy Policy) StrategyWriter {
	return StrategyWriter{
		store:  store,
		policy: policy,
	}
}

// Enabled 返回当前请求是否参与缓存（可缓存、TTL 为正且存在 Store）。
func (w StrategyWriter) Enabled() bool {
	return w.store != nil && w.policy.Cacheable && w.policy.TTL > 0
}

// Lookup 在策略允许时读取缓存，未启用时直接返回 ErrNotFound。
func (w StrategyWriter) Lookup(ctx context.Context, key string) (*Entry, error) {
	if !w.Enabled() {
		return nil, ErrNotFound
	}
	return w.store.Get(ctx, key)
}

// Put 以策略中的 TTL 与 Content-Type 写入缓存。
func (w StrategyWriter) Put(ctx context.Context, key string, payload []byte) (*Entry, error) {
	if w.store == nil {
		return nil, ErrStoreUnavailable
	}
	if !w.Enabled() {
		return nil, nil
	}
	return w.store.Put(ctx, key, payload, PutOptions{
		TTL:         w.policy.TTL,
		ContentType: w.policy.ContentType,
	})
}
