package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/manga-hub/internal/cache"
	"github.com/any-hub/manga-hub/internal/route"
)

type fixedResolver struct{}

func (fixedResolver) Next() (string, string) { return "Naruto", "https://search.test/?q=Naruto" }

func newDiagnosticsApp(t *testing.T) (*fiber.App, cache.Store) {
	t.Helper()
	classifier, err := route.NewClassifier(route.Options{
		Origins: route.Origins{
			API:     "https://api.test",
			Cover:   "https://covers.test",
			Chapter: "https://pages.test",
			Flag:    "https://flags.test",
		},
		TTLOverrides: map[string]time.Duration{"cover": 10 * time.Minute},
		Wallpaper:    fixedResolver{},
	})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	store, err := cache.NewStore(cache.Options{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	app := fiber.New()
	RegisterClassRoutes(app, classifier, store)
	return app, store
}

func TestClassRoutesListProfilesAndEntryCount(t *testing.T) {
	app, store := newDiagnosticsApp(t)
	if _, err := store.Put(context.Background(), "k", []byte("v"), cache.PutOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("put: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/-/routes", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Classes      []classPayload `json:"classes"`
		CacheEntries int            `json:"cache_entries"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v (%s)", err, string(body))
	}
	if len(payload.Classes) != 5 {
		t.Fatalf("expected 5 classes, got %d", len(payload.Classes))
	}
	if payload.Classes[0].Class != "wallpaper" || payload.Classes[0].Cacheable {
		t.Fatalf("wallpaper should be listed first and uncached: %+v", payload.Classes[0])
	}
	if payload.CacheEntries != 1 {
		t.Fatalf("expected 1 cache entry, got %d", payload.CacheEntries)
	}
	for _, c := range payload.Classes {
		if c.Class == "cover" && c.TTLSeconds != 600 {
			t.Fatalf("cover ttl should reflect override, got %d", c.TTLSeconds)
		}
	}
}

func TestClassRouteDetail(t *testing.T) {
	app, _ := newDiagnosticsApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/routes/chapter", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var payload classPayload
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Transcode == nil || payload.Transcode.Quality != 100 || !payload.Transcode.Lossless {
		t.Fatalf("chapter should transcode losslessly: %+v", payload.Transcode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/-/routes/unknown", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown class, got %d", resp.StatusCode)
	}
}
