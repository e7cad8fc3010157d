package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供资源类别/缓存键/命中状态字段，供代理请求日志复用。
func RequestFields(class, cacheKey, upstream string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"class":     class,
		"cache_key": cacheKey,
		"upstream":  upstream,
		"cache_hit": cacheHit,
	}
}

// WithElapsed 在字段中追加 elapsed_ms，started 为零值时跳过。
func WithElapsed(fields logrus.Fields, started time.Time) logrus.Fields {
	if !started.IsZero() {
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
	}
	return fields
}
