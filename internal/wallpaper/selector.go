// Package wallpaper picks a title for the wallpaper endpoint and builds the
// search URL the proxy forwards to. Randomness comes through Picker so tests
// can make the choice deterministic.
package wallpaper

import (
	"errors"
	"math/rand/v2"
	"net/url"
	"strings"
)

// Picker 在 [0, n) 中选出一个下标。
type Picker interface {
	Pick(n int) int
}

// PickerFunc 让普通函数满足 Picker。
type PickerFunc func(n int) int

// Pick makes PickerFunc satisfy Picker.
func (f PickerFunc) Pick(n int) int {
	return f(n)
}

// RandomPicker 使用 math/rand/v2 的全局源，均匀分布且不做记忆。
type RandomPicker struct{}

// Pick 返回 [0, n) 内的随机下标。
func (RandomPicker) Pick(n int) int {
	return rand.IntN(n)
}

// Options 构造 Selector 所需的参数。
type Options struct {
	Titles     []string
	Picker     Picker
	SearchURL  string
	QueryParam string
}

// Selector 从标题列表中挑选一项并拼出搜索地址。
type Selector struct {
	titles     []string
	picker     Picker
	searchURL  string
	queryParam string
}

// NewSelector 校验参数并创建 Selector；Titles 为空时使用 DefaultTitles。
func NewSelector(opts Options) (*Selector, error) {
	titles := opts.Titles
	if len(titles) == 0 {
		titles = DefaultTitles
	}
	base := strings.TrimSpace(opts.SearchURL)
	if base == "" {
		return nil, errors.New("wallpaper search url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, err
	}
	picker := opts.Picker
	if picker == nil {
		picker = RandomPicker{}
	}
	param := opts.QueryParam
	if param == "" {
		param = "q"
	}
	return &Selector{
		titles:     append([]string(nil), titles...),
		picker:     picker,
		searchURL:  base,
		queryParam: param,
	}, nil
}

// Next 随机挑选一个标题，返回标题及对应的搜索地址。
func (s *Selector) Next() (string, string) {
	idx := s.picker.Pick(len(s.titles))
	if idx < 0 || idx >= len(s.titles) {
		idx = ((idx % len(s.titles)) + len(s.titles)) % len(s.titles)
	}
	title := s.titles[idx]
	return title, s.SearchURL(title)
}

// SearchURL 返回指定标题的搜索地址。
func (s *Selector) SearchURL(title string) string {
	values := url.Values{}
	values.Set(s.queryParam, title)
	return s.searchURL + "?" + values.Encode()
}
