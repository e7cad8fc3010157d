package transcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"runtime"

	"github.com/gen2brain/webp"
	"golang.org/x/sync/semaphore"
)

// defaultMethod 是 libwebp 的 method 参数（0 最快，6 最慢压缩最好）。
const defaultMethod = 4

// WebPOptions 控制编码器的并发与速度取舍。
type WebPOptions struct {
	// MaxConcurrent 限制同时进行的解码/编码数量，默认 runtime.NumCPU()。
	MaxConcurrent int
	Method        int
}

// WebPTranscoder 通过 gen2brain/webp 编码 WebP，不依赖 cgo。
type WebPTranscoder struct {
	sem    *semaphore.Weighted
	method int
}

// NewWebPTranscoder 创建转码器，多个请求共享同一实例。
func NewWebPTranscoder(opts WebPOptions) *WebPTranscoder {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	method := opts.Method
	if method <= 0 || method > 6 {
		method = defaultMethod
	}
	return &WebPTranscoder{
		sem:    semaphore.NewWeighted(int64(limit)),
		method: method,
	}
}

// Transcode 解码 r 中的图片并按 spec 重新编码；输入流会被完整读取后才返回。
func (t *WebPTranscoder) Transcode(ctx context.Context, r io.Reader, spec Spec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.sem.Release(1)

	img, source, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTranscode, err)
	}
	// 部分解码器不会读到 EOF，补读剩余字节保证上游流被完整消费。
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, fmt.Errorf("%w: drain %s input: %v", ErrTranscode, source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = webp.Encode(&buf, img, webp.Options{
		Quality:  spec.Quality,
		Lossless: spec.Lossless(),
		Method:   t.method,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode webp from %s: %v", ErrTranscode, source, err)
	}
	return buf.Bytes(), nil
}
