package route

import (
	"time"

	"github.com/any-hub/manga-hub/internal/transcode"
)

func init() {
	cover := transcode.CoverSpec
	chapter := transcode.ChapterSpec

	MustRegister(Profile{
		Class:       ClassWallpaper,
		Description: "random curated title resolved through the wallpaper search provider",
		Cacheable:   false,
		ContentType: "application/json",
		Priority:    10,
	})
	MustRegister(Profile{
		Class:       ClassGeneric,
		Description: "content API passthrough; chapter endpoints bypass the cache",
		DefaultTTL:  60 * time.Second,
		Cacheable:   true,
		ContentType: "application/json",
		Priority:    20,
	})
	MustRegister(Profile{
		Class:       ClassCover,
		Description: "cover art re-encoded as webp",
		DefaultTTL:  300 * time.Second,
		Cacheable:   true,
		Transcode:   &cover,
		ContentType: cover.ContentType(),
		Priority:    30,
	})
	MustRegister(Profile{
		Class:       ClassChapter,
		Description: "data-saver chapter page re-encoded as lossless webp",
		DefaultTTL:  300 * time.Second,
		Cacheable:   true,
		Transcode:   &chapter,
		ContentType: chapter.ContentType(),
		Priority:    40,
	})
	MustRegister(Profile{
		Class:       ClassFlag,
		Description: "language flag svg passed through as-is",
		DefaultTTL:  600 * time.Second,
		Cacheable:   true,
		ContentType: "image/svg+xml",
		Priority:    50,
	})
}
