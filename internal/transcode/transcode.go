// Package transcode turns an arbitrary upstream image stream into a WebP
// buffer at a fixed quality. Source formats are whatever is registered with
// the image package: JPEG, PNG and GIF from the standard library plus WebP, BMP
// and TIFF from golang.org/x/image.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format 标识输出编码，目前仅支持 webp。
type Format string

const FormatWebP Format = "webp"

// Spec 描述一次转码的目标格式与质量（1-100）。
type Spec struct {
	Format  Format `json:"format"`
	Quality int    `json:"quality"`
}

// 各资源类别固定使用的转码参数。
var (
	CoverSpec   = Spec{Format: FormatWebP, Quality: 65}
	ChapterSpec = Spec{Format: FormatWebP, Quality: 100}
)

// ContentType 返回输出格式对应的 MIME 类型。
func (s Spec) ContentType() string {
	switch s.Format {
	case FormatWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Validate 校验输出格式与质量区间。
func (s Spec) Validate() error {
	if s.Format != FormatWebP {
		return fmt.Errorf("%w: unsupported output format %q", ErrTranscode, s.Format)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("%w: quality %d out of range 1-100", ErrTranscode, s.Quality)
	}
	return nil
}

// Lossless 为 true 时使用无损编码；质量 100 视为无损。
func (s Spec) Lossless() bool {
	return s.Quality >= 100
}

// ErrTranscode 表示输入无法解码或输出无法编码。
var ErrTranscode = errors.New("transcode failed")

// Transcoder 消费完整输入流并返回完整的输出缓冲。
type Transcoder interface {
	Transcode(ctx context.Context, r io.Reader, spec Spec) ([]byte, error)
}
