package route

import (
	"net/url"
	"strings"
)

// listSeparator 是托管层把同名查询参数合并成单值时使用的分隔符。
const listSeparator = ", "

// Param 是保持原始顺序的查询参数。
type Param struct {
	Key   string
	Value string
}

// CollectQuery 按首次出现的顺序解析原始查询串，同名键合并为 ", " 连接的单个值，
// 例如 status[]=a&status[]=b 得到 {status[]: "a, b"}。
func CollectQuery(raw string) []Param {
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return nil
	}

	var params []Param
	index := make(map[string]int)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key := unescapeComponent(rawKey)
		if key == "" {
			continue
		}
		value := unescapeComponent(rawValue)
		if i, ok := index[key]; ok {
			params[i].Value += listSeparator + value
			continue
		}
		index[key] = len(params)
		params = append(params, Param{Key: key, Value: value})
	}
	return params
}

// SerializeQuery 把参数重新序列化为上游查询串：含 ", " 的值展开成多个 key=value，
// 其余值输出单个 key=value，整体顺序与输入一致。
func SerializeQuery(params []Param) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeComponent(key))
		b.WriteByte('=')
		b.WriteString(escapeComponent(value))
	}
	for _, p := range params {
		if strings.Contains(p.Value, listSeparator) {
			for _, item := range strings.Split(p.Value, listSeparator) {
				write(p.Key, item)
			}
			continue
		}
		write(p.Key, p.Value)
	}
	return b.String()
}

var bracketUnescaper = strings.NewReplacer("%5B", "[", "%5D", "]")

// escapeComponent 做查询串转义，但保留方括号，使 includes[]=x 保持可读。
func escapeComponent(s string) string {
	return bracketUnescaper.Replace(url.QueryEscape(s))
}

func unescapeComponent(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}
