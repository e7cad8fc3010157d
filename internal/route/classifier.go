package route

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/any-hub/manga-hub/internal/transcode"
)

// ErrInvalidRoute 表示路径不属于任何资源类别。
var ErrInvalidRoute = errors.New("invalid route")

// Decision 是单个请求的路由结果，每个请求重新生成，不做持久化。
type Decision struct {
	Class       Class
	UpstreamURL string
	CacheKey    string
	TTL         time.Duration
	Cacheable   bool
	Transcode   *transcode.Spec
	ContentType string
	// Title 仅在壁纸查询时填充，记录本次随机选中的标题。
	Title string
}

// WallpaperResolver 为壁纸查询挑选标题并给出搜索地址。
type WallpaperResolver interface {
	Next() (title string, searchURL string)
}

// Origins 汇总各资源类别的上游根地址（不含末尾斜杠）。
type Origins struct {
	API     string
	Cover   string
	Chapter string
	Flag    string
}

// Options 构造 Classifier 所需的依赖。
type Options struct {
	Origins      Origins
	TTLOverrides map[string]time.Duration
	Wallpaper    WallpaperResolver
}

// Classifier 将入站路径映射为 Decision。
type Classifier struct {
	origins   Origins
	wallpaper WallpaperResolver
	profiles  map[Class]Profile
}

// NewClassifier 合并注册表中的类别策略与配置覆盖项。调用方应在启动阶段创建一次并复用。
func NewClassifier(opts Options) (*Classifier, error) {
	if opts.Wallpaper == nil {
		return nil, errors.New("wallpaper resolver is required")
	}
	origins := Origins{
		API:     strings.TrimRight(opts.Origins.API, "/"),
		Cover:   strings.TrimRight(opts.Origins.Cover, "/"),
		Chapter: strings.TrimRight(opts.Origins.Chapter, "/"),
		Flag:    strings.TrimRight(opts.Origins.Flag, "/"),
	}
	if origins.API == "" || origins.Cover == "" || origins.Chapter == "" || origins.Flag == "" {
		return nil, errors.New("all upstream origins are required")
	}

	profiles := make(map[Class]Profile)
	for _, class := range []Class{ClassWallpaper, ClassGeneric, ClassCover, ClassChapter, ClassFlag} {
		p, ok := Resolve(class)
		if !ok {
			return nil, fmt.Errorf("resource class %s is not registered", class)
		}
		if ttl, ok := opts.TTLOverrides[string(class)]; ok && ttl > 0 && p.Cacheable {
			p.DefaultTTL = ttl
		}
		profiles[class] = p
	}

	return &Classifier{
		origins:   origins,
		wallpaper: opts.Wallpaper,
		profiles:  profiles,
	}, nil
}

// Profile 返回分类器实际生效的类别策略（已合并 TTL 覆盖）。
func (c *Classifier) Profile(class Class) (Profile, bool) {
	p, ok := c.profiles[class]
	return p, ok
}

// Classify 依次匹配 wall_paper、v1、cover、chapter、flag(s)，首个命中者生效。
// 路径段下标沿用 "/a/b" 切分后首段为空串的约定，segments[2] 即操作名。
func (c *Classifier) Classify(rawPath string, query []Param) (Decision, error) {
	if !strings.HasPrefix(rawPath, "/") {
		rawPath = "/" + rawPath
	}
	segments := strings.Split(rawPath, "/")
	if len(segments) < 3 {
		return Decision{}, ErrInvalidRoute
	}

	switch segments[1] {
	case "api":
		switch segments[2] {
		case "wall_paper":
			if len(segments) > 3 && strings.Join(segments[3:], "") != "" {
				return Decision{}, ErrInvalidRoute
			}
			return c.wallpaperDecision(), nil
		case "v1":
			return c.genericDecision(rawPath, segments, query)
		}
	case "image":
		params := trimTrailingEmpty(segments[3:])
		switch segments[2] {
		case "cover":
			if !validParams(params, 3) {
				return Decision{}, ErrInvalidRoute
			}
			target := fmt.Sprintf("%s/%s/%s.%s.jpg", c.origins.Cover,
				url.PathEscape(params[0]), url.PathEscape(params[1]), url.PathEscape(params[2]))
			return c.assetDecision(ClassCover, target), nil
		case "chapter":
			if !validParams(params, 2) {
				return Decision{}, ErrInvalidRoute
			}
			target := fmt.Sprintf("%s/%s/%s", c.origins.Chapter,
				url.PathEscape(params[0]), url.PathEscape(params[1]))
			return c.assetDecision(ClassChapter, target), nil
		case "flag", "flags":
			if !validParams(params, 1) {
				return Decision{}, ErrInvalidRoute
			}
			code := strings.ToLower(params[0])
			target := fmt.Sprintf("%s/%s.svg", c.origins.Flag, url.PathEscape(code))
			return c.assetDecision(ClassFlag, target), nil
		}
	}
	return Decision{}, ErrInvalidRoute
}

func (c *Classifier) wallpaperDecision() Decision {
	p := c.profiles[ClassWallpaper]
	title, searchURL := c.wallpaper.Next()
	return Decision{
		Class:       ClassWallpaper,
		UpstreamURL: searchURL,
		Cacheable:   false,
		ContentType: p.ContentType,
		Title:       title,
	}
}

func (c *Classifier) genericDecision(rawPath string, segments []string, query []Param) (Decision, error) {
	if len(segments) < 4 || segments[3] == "" {
		return Decision{}, ErrInvalidRoute
	}
	p := c.profiles[ClassGeneric]
	target := c.origins.API + strings.TrimPrefix(rawPath, "/api/v1")
	if qs := SerializeQuery(query); qs != "" {
		target += "?" + qs
	}

	// chapter 列表/元数据变化频繁，既不读也不写缓存。
	cacheable := segments[3] != "chapter"
	d := Decision{
		Class:       ClassGeneric,
		UpstreamURL: target,
		Cacheable:   cacheable,
		ContentType: p.ContentType,
	}
	if cacheable {
		d.CacheKey = target
		d.TTL = p.DefaultTTL
	}
	return d, nil
}

func (c *Classifier) assetDecision(class Class, target string) Decision {
	p := c.profiles[class]
	return Decision{
		Class:       class,
		UpstreamURL: target,
		CacheKey:    target,
		TTL:         p.DefaultTTL,
		Cacheable:   p.Cacheable,
		Transcode:   p.Transcode,
		ContentType: p.ContentType,
	}
}

func trimTrailingEmpty(params []string) []string {
	for len(params) > 0 && params[len(params)-1] == "" {
		params = params[:len(params)-1]
	}
	return params
}

func validParams(params []string, want int) bool {
	if len(params) != want {
		return false
	}
	for _, p := range params {
		if p == "" || p == "." || p == ".." {
			return false
		}
	}
	return true
}
