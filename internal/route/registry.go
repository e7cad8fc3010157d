package route

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/any-hub/manga-hub/internal/transcode"
)

// Class 标识资源类别。
type Class string

const (
	ClassWallpaper Class = "wallpaper"
	ClassGeneric   Class = "generic"
	ClassCover     Class = "cover"
	ClassChapter   Class = "chapter"
	ClassFlag      Class = "flag"
)

// Profile 记录一个资源类别的静态策略，供分类器与诊断接口使用。
type Profile struct {
	Class       Class
	Description string
	// DefaultTTL 为 0 表示该类别从不缓存。
	DefaultTTL  time.Duration
	Cacheable   bool
	Transcode   *transcode.Spec
	ContentType string
	// Priority 越小越先匹配，对应路由规则的先后顺序。
	Priority int
}

var globalRegistry = newRegistry()

type registry struct {
	mu       sync.RWMutex
	profiles map[Class]Profile
}

func newRegistry() *registry {
	return &registry{profiles: make(map[Class]Profile)}
}

// Register 将类别策略加入全局注册表，重复键会返回错误。
func Register(p Profile) error {
	return globalRegistry.register(p)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(p Profile) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

// Resolve 返回指定类别的策略。
func Resolve(class Class) (Profile, bool) {
	return globalRegistry.resolve(class)
}

// Profiles 返回按 Priority 排序的全部类别策略。
func Profiles() []Profile {
	return globalRegistry.list()
}

func normalizeClass(class Class) Class {
	return Class(strings.ToLower(strings.TrimSpace(string(class))))
}

func (r *registry) register(p Profile) error {
	key := normalizeClass(p.Class)
	if key == "" {
		return fmt.Errorf("resource class is required")
	}
	if p.Cacheable && p.DefaultTTL <= 0 {
		return fmt.Errorf("resource class %s: cacheable profile needs a positive ttl", key)
	}
	if p.Transcode != nil {
		if err := p.Transcode.Validate(); err != nil {
			return fmt.Errorf("resource class %s: %w", key, err)
		}
	}
	p.Class = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[key]; exists {
		return fmt.Errorf("resource class %s already registered", key)
	}
	r.profiles[key] = p
	return nil
}

func (r *registry) resolve(class Class) (Profile, bool) {
	key := normalizeClass(class)
	if key == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[key]
	return p, ok
}

func (r *registry) list() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.profiles) == 0 {
		return nil
	}
	result := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].Class < result[j].Class
	})
	return result
}
