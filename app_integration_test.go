package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/manga-hub/internal/config"
	"github.com/any-hub/manga-hub/internal/logging"
)

func TestAppServesCachedCoverAsWebP(t *testing.T) {
	origin := newOriginStub(t)
	app := newIntegrationApp(t, origin.URL)

	first := doGet(t, app, "/image/cover/manga-1/cover-1/512")
	if first.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", first.StatusCode)
	}
	if ct := first.Header.Get("Content-Type"); ct != "image/webp" {
		t.Fatalf("unexpected content type %s", ct)
	}
	body := readAll(t, first)
	if len(body) < 12 || string(body[0:4]) != "RIFF" || string(body[8:12]) != "WEBP" {
		t.Fatalf("response is not a webp container")
	}
	if first.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header on proxied response")
	}

	second := doGet(t, app, "/image/cover/manga-1/cover-1/512")
	if second.Header.Get("X-Manga-Hub-Cache-Hit") != "true" {
		t.Fatalf("second request should hit the cache")
	}
	if !bytes.Equal(body, readAll(t, second)) {
		t.Fatalf("cached cover should be byte-identical")
	}
	if got := origin.count("/covers/manga-1/cover-1.512.jpg"); got != 1 {
		t.Fatalf("expected one origin fetch, got %d", got)
	}
}

func TestAppPassesThroughContentAPI(t *testing.T) {
	origin := newOriginStub(t)
	app := newIntegrationApp(t, origin.URL)

	resp := doGet(t, app, "/api/v1/manga?title=one%20piece&includes%5B%5D=cover_art&includes%5B%5D=author")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.Unmarshal(readAll(t, resp), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["query"] != "title=one+piece&includes[]=cover_art&includes[]=author" {
		t.Fatalf("unexpected upstream query %q", payload["query"])
	}
}

func TestAppDiagnosticsAndPreflight(t *testing.T) {
	origin := newOriginStub(t)
	app := newIntegrationApp(t, origin.URL)

	doGet(t, app, "/image/flag/GB")

	resp := doGet(t, app, "/-/routes")
	var diag struct {
		Classes      []map[string]interface{} `json:"classes"`
		CacheEntries int                      `json:"cache_entries"`
	}
	if err := json.Unmarshal(readAll(t, resp), &diag); err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if len(diag.Classes) != 5 || diag.CacheEntries != 1 {
		t.Fatalf("unexpected diagnostics %+v", diag)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/manga", nil)
	pre, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if pre.StatusCode != fiber.StatusOK || !strings.Contains(string(readAll(t, pre)), "Preflight check successful") {
		t.Fatalf("unexpected preflight response %d", pre.StatusCode)
	}
}

func TestAppRejectsUnknownOperation(t *testing.T) {
	origin := newOriginStub(t)
	app := newIntegrationApp(t, origin.URL)

	resp := doGet(t, app, "/image/poster/x")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if string(readAll(t, resp)) != `{"error":"Invalid operation"}` {
		t.Fatalf("unexpected body")
	}
}

func newIntegrationApp(t *testing.T, originURL string) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:           5000,
			LogLevel:             "info",
			UpstreamTimeout:      config.Duration(5 * time.Second),
			MaxUpstreamBodyBytes: 1 << 20,
			CoalesceMisses:       true,
		},
		Upstream: config.UpstreamConfig{
			APIBase:             originURL + "/api",
			CoverBase:           originURL + "/covers",
			ChapterBase:         originURL + "/pages",
			FlagBase:            originURL + "/flags",
			WallpaperSearch:     originURL + "/search",
			WallpaperQueryParam: "q",
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config should be valid: %v", err)
	}
	app, err := buildApp(cfg, logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

func doGet(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("app.Test failed for %s: %v", target, err)
	}
	return resp
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return body
}

type originStub struct {
	*httptest.Server
	mu     sync.Mutex
	counts map[string]int
}

func newOriginStub(t *testing.T) *originStub {
	t.Helper()
	stub := &originStub{counts: make(map[string]int)}
	cover := encodePNG(t)
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.counts[r.URL.Path]++
		stub.mu.Unlock()

		switch {
		case strings.HasPrefix(r.URL.Path, "/api/"):
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path, "query": r.URL.RawQuery})
		case strings.HasPrefix(r.URL.Path, "/covers/"):
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(cover)
		case strings.HasPrefix(r.URL.Path, "/flags/"):
			w.Header().Set("Content-Type", "image/svg+xml")
			_, _ = w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *originStub) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[path]
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
