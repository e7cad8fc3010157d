package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级运行参数。
type GlobalConfig struct {
	ListenPort           int      `mapstructure:"ListenPort"`
	LogLevel             string   `mapstructure:"LogLevel"`
	LogFilePath          string   `mapstructure:"LogFilePath"`
	LogMaxSize           int      `mapstructure:"LogMaxSize"`
	LogMaxBackups        int      `mapstructure:"LogMaxBackups"`
	LogCompress          bool     `mapstructure:"LogCompress"`
	UpstreamTimeout      Duration `mapstructure:"UpstreamTimeout"`
	MaxCacheEntries      int      `mapstructure:"MaxCacheEntries"`
	MaxUpstreamBodyBytes int64    `mapstructure:"MaxUpstreamBodyBytes"`
	CoalesceMisses       bool     `mapstructure:"CoalesceMisses"`
}

// UpstreamConfig 列出各资源类别对应的上游源站。
type UpstreamConfig struct {
	APIBase             string `mapstructure:"APIBase"`
	CoverBase           string `mapstructure:"CoverBase"`
	ChapterBase         string `mapstructure:"ChapterBase"`
	FlagBase            string `mapstructure:"FlagBase"`
	WallpaperSearch     string `mapstructure:"WallpaperSearch"`
	WallpaperQueryParam string `mapstructure:"WallpaperQueryParam"`
}

// CacheTTLConfig 允许覆盖各资源类别的默认 TTL，零值表示使用内置默认。
type CacheTTLConfig struct {
	Generic Duration `mapstructure:"Generic"`
	Cover   Duration `mapstructure:"Cover"`
	Chapter Duration `mapstructure:"Chapter"`
	Flag    Duration `mapstructure:"Flag"`
}

// WallpaperConfig 控制壁纸查询使用的标题列表，为空时使用内置列表。
type WallpaperConfig struct {
	Titles []string `mapstructure:"Titles"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig    `mapstructure:",squash"`
	Upstream  UpstreamConfig  `mapstructure:"Upstream"`
	CacheTTL  CacheTTLConfig  `mapstructure:"CacheTTL"`
	Wallpaper WallpaperConfig `mapstructure:"Wallpaper"`
}

// Origins 返回上游源站摘要，例如 api=https://api.mangadex.org，供启动日志输出。
func (c *Config) Origins() []string {
	if c == nil {
		return nil
	}
	u := c.Upstream
	return []string{
		"api=" + u.APIBase,
		"cover=" + u.CoverBase,
		"chapter=" + u.ChapterBase,
		"flag=" + u.FlagBase,
		"wallpaper=" + u.WallpaperSearch,
	}
}
