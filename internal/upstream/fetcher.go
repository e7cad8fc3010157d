// Package upstream issues GET requests against the content API and asset
// origins. Every failure, whether transport level or a non-2xx status, is
// reported as *UpstreamError so callers map it to one generic response.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/any-hub/manga-hub/internal/version"
)

// DefaultMaxBodyBytes 限制 Fetch 一次性读入内存的正文大小。
const DefaultMaxBodyBytes int64 = 32 * 1024 * 1024

// UpstreamError 描述一次失败的上游请求。StatusCode 为 0 表示网络层失败。
type UpstreamError struct {
	URL        string
	StatusCode int
	Message    string
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("upstream ")
	if e.Timeout {
		b.WriteString("timeout")
	} else if e.StatusCode > 0 {
		fmt.Fprintf(&b, "status %d", e.StatusCode)
	} else {
		b.WriteString("request failed")
	}
	if e.URL != "" {
		b.WriteString(" for ")
		b.WriteString(e.URL)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Options 控制 Fetcher 的可选行为。
type Options struct {
	MaxBodyBytes int64
	UserAgent    string
}

// Fetcher 在共享 http.Client 上执行 GET，不做任何重试。
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
}

// NewFetcher 创建 Fetcher；client 为空时使用 http.DefaultClient。
func NewFetcher(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "manga-hub/" + version.Version
	}
	return &Fetcher{
		client:       client,
		maxBodyBytes: maxBody,
		userAgent:    ua,
	}
}

// Fetch 读取完整正文。正文超过上限时返回 UpstreamError。
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := f.FetchStream(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.maxBodyBytes+1))
	if err != nil {
		return nil, wrapTransportError(url, err)
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, &UpstreamError{URL: url, Message: fmt.Sprintf("body exceeds %d bytes", f.maxBodyBytes)}
	}
	return data, nil
}

// FetchStream 返回 2xx 响应的正文流，调用方负责关闭；读取超过正文上限时返回 UpstreamError。
func (f *Fetcher) FetchStream(ctx context.Context, url string) (io.ReadCloser, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &UpstreamError{URL: url, Message: "invalid upstream url", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrapTransportError(url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 丢弃正文以复用连接，上游错误内容不向外透出。
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		return nil, &UpstreamError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	return &limitedBody{body: resp.Body, url: url, remaining: f.maxBodyBytes, limit: f.maxBodyBytes}, nil
}

// limitedBody 在读取超过上限时返回 UpstreamError，流式读取与 Fetch 共用同一上限。
type limitedBody struct {
	body      io.ReadCloser
	url       string
	remaining int64
	limit     int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, b.overflow()
	}
	// 多读 1 字节用于判断是否超限。
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.body.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n + int(b.remaining), b.overflow()
	}
	if err != nil && err != io.EOF {
		return n, wrapTransportError(b.url, err)
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.body.Close()
}

func (b *limitedBody) overflow() error {
	return &UpstreamError{URL: b.url, Message: fmt.Sprintf("body exceeds %d bytes", b.limit)}
}

// IsTimeout 判断错误链中是否包含上游超时。
func IsTimeout(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Timeout
	}
	return false
}

func wrapTransportError(url string, err error) error {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return err
	}
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	if timeout {
		return &UpstreamError{URL: url, StatusCode: http.StatusGatewayTimeout, Timeout: true, Err: err}
	}
	return &UpstreamError{URL: url, Message: err.Error(), Err: err}
}
