package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError(sectionField("", "ListenPort"), "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError(sectionField("", "LogLevel"), "无法识别的日志级别")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError(sectionField("", "UpstreamTimeout"), "必须大于 0")
	}
	if g.MaxCacheEntries < 0 {
		return newFieldError(sectionField("", "MaxCacheEntries"), "不能为负数")
	}
	if g.MaxUpstreamBodyBytes <= 0 {
		return newFieldError(sectionField("", "MaxUpstreamBodyBytes"), "必须大于 0")
	}

	origins := []struct {
		field string
		value string
	}{
		{"APIBase", c.Upstream.APIBase},
		{"CoverBase", c.Upstream.CoverBase},
		{"ChapterBase", c.Upstream.ChapterBase},
		{"FlagBase", c.Upstream.FlagBase},
		{"WallpaperSearch", c.Upstream.WallpaperSearch},
	}
	for _, origin := range origins {
		if err := validateUpstream(origin.value); err != nil {
			return fmt.Errorf("%s: %w", sectionField("Upstream", origin.field), err)
		}
	}
	if strings.ContainsAny(c.Upstream.WallpaperQueryParam, "&=?# ") {
		return newFieldError(sectionField("Upstream", "WallpaperQueryParam"), "包含非法字符")
	}

	ttls := []struct {
		field string
		value Duration
	}{
		{"Generic", c.CacheTTL.Generic},
		{"Cover", c.CacheTTL.Cover},
		{"Chapter", c.CacheTTL.Chapter},
		{"Flag", c.CacheTTL.Flag},
	}
	for _, ttl := range ttls {
		if ttl.value.DurationValue() < 0 {
			return newFieldError(sectionField("CacheTTL", ttl.field), "不能为负数")
		}
	}

	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("上游地址不应包含查询参数: %s", raw)
	}
	return nil
}

// TTLOverrides 按资源类别键输出配置中的 TTL 覆盖值，未设置的类别不出现在结果中。
func (c *Config) TTLOverrides() map[string]time.Duration {
	out := make(map[string]time.Duration, 4)
	if c == nil {
		return out
	}
	set := func(key string, d Duration) {
		if d.DurationValue() > 0 {
			out[key] = d.DurationValue()
		}
	}
	set("generic", c.CacheTTL.Generic)
	set("cover", c.CacheTTL.Cover)
	set("chapter", c.CacheTTL.Chapter)
	set("flag", c.CacheTTL.Flag)
	return out
}
