package routes

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/manga-hub/internal/cache"
	"github.com/any-hub/manga-hub/internal/route"
)

// RegisterClassRoutes 暴露 /-/routes 诊断接口，查询资源类别策略与缓存条目数。
func RegisterClassRoutes(app *fiber.App, classifier *route.Classifier, store cache.Store) {
	if app == nil || classifier == nil {
		return
	}

	app.Get("/-/routes", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"classes": encodeProfiles(classifier, route.Profiles()),
		}
		if store != nil {
			payload["cache_entries"] = store.Len()
		}
		return c.JSON(payload)
	})

	app.Get("/-/routes/:class", func(c fiber.Ctx) error {
		class := route.Class(strings.ToLower(strings.TrimSpace(c.Params("class"))))
		profile, ok := classifier.Profile(class)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "class_not_found"})
		}
		return c.JSON(encodeProfile(profile))
	})
}

type classPayload struct {
	Class       string            `json:"class"`
	Description string            `json:"description"`
	Cacheable   bool              `json:"cacheable"`
	TTLSeconds  int64             `json:"ttl_seconds"`
	ContentType string            `json:"content_type"`
	Transcode   *transcodePayload `json:"transcode,omitempty"`
}

type transcodePayload struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	Lossless bool   `json:"lossless"`
}

// encodeProfiles 以注册表顺序输出，TTL 取分类器合并配置覆盖后的生效值。
func encodeProfiles(classifier *route.Classifier, registered []route.Profile) []classPayload {
	if len(registered) == 0 {
		return nil
	}
	result := make([]classPayload, 0, len(registered))
	for _, p := range registered {
		if effective, ok := classifier.Profile(p.Class); ok {
			p = effective
		}
		result = append(result, encodeProfile(p))
	}
	return result
}

func encodeProfile(p route.Profile) classPayload {
	payload := classPayload{
		Class:       string(p.Class),
		Description: p.Description,
		Cacheable:   p.Cacheable,
		TTLSeconds:  int64(p.DefaultTTL / time.Second),
		ContentType: p.ContentType,
	}
	if p.Transcode != nil {
		payload.Transcode = &transcodePayload{
			Format:   string(p.Transcode.Format),
			Quality:  p.Transcode.Quality,
			Lossless: p.Transcode.Lossless(),
		}
	}
	return payload
}
