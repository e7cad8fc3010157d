package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 默认上游源站，与线上 MangaDex 部署保持一致。
const (
	DefaultAPIBase         = "https://api.mangadex.org"
	DefaultCoverBase       = "https://uploads.mangadex.org/covers"
	DefaultChapterBase     = "https://cmdxd98sb0x3yprd.mangadex.network/data-saver"
	DefaultFlagBase        = "https://mangadex.org/img/flags"
	DefaultWallpaperSearch = "https://wallhaven.cc/api/v1/search"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyUpstreamDefaults(&cfg.Upstream)
	cfg.Wallpaper.Titles = compactTitles(cfg.Wallpaper.Titles)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("MaxCacheEntries", 0)
	v.SetDefault("MaxUpstreamBodyBytes", 32*1024*1024)
	v.SetDefault("CoalesceMisses", true)

	v.SetDefault("Upstream.APIBase", DefaultAPIBase)
	v.SetDefault("Upstream.CoverBase", DefaultCoverBase)
	v.SetDefault("Upstream.ChapterBase", DefaultChapterBase)
	v.SetDefault("Upstream.FlagBase", DefaultFlagBase)
	v.SetDefault("Upstream.WallpaperSearch", DefaultWallpaperSearch)
	v.SetDefault("Upstream.WallpaperQueryParam", "q")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.MaxUpstreamBodyBytes == 0 {
		g.MaxUpstreamBodyBytes = 32 * 1024 * 1024
	}
}

func applyUpstreamDefaults(u *UpstreamConfig) {
	u.APIBase = trimBase(u.APIBase, DefaultAPIBase)
	u.CoverBase = trimBase(u.CoverBase, DefaultCoverBase)
	u.ChapterBase = trimBase(u.ChapterBase, DefaultChapterBase)
	u.FlagBase = trimBase(u.FlagBase, DefaultFlagBase)
	u.WallpaperSearch = trimBase(u.WallpaperSearch, DefaultWallpaperSearch)
	if strings.TrimSpace(u.WallpaperQueryParam) == "" {
		u.WallpaperQueryParam = "q"
	}
}

// trimBase 去掉末尾斜杠，拼接路径时统一使用 base + "/" + rest。
func trimBase(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	return strings.TrimRight(raw, "/")
}

func compactTitles(titles []string) []string {
	if len(titles) == 0 {
		return nil
	}
	out := make([]string, 0, len(titles))
	for _, title := range titles {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
