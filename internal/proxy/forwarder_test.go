package proxy

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/any-hub/manga-hub/internal/server"
)

const requestIDKey = "_mangahub_request_id"

func TestForwarderMissingHandler(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()

	ctx := app.AcquireCtx(new(fasthttp.RequestCtx))
	defer app.ReleaseCtx(ctx)
	ctx.Locals(requestIDKey, "missing-req")

	logger := logrus.New()
	logBuf := &bytes.Buffer{}
	logger.SetOutput(logBuf)

	forwarder := NewForwarder(nil, logger)
	if err := forwarder.Handle(ctx); err != nil {
		t.Fatalf("forwarder.Handle returned unexpected error: %v", err)
	}
	if status := ctx.Response().StatusCode(); status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 for missing handler, got %d", status)
	}
	if body := string(ctx.Response().Body()); body != `{"error":"Internal Server Error"}` {
		t.Fatalf("unexpected body %s", body)
	}
	if !strings.Contains(logBuf.String(), "proxy_handler_missing") {
		t.Fatalf("expected log to mention proxy_handler_missing, got %s", logBuf.String())
	}
	if got := string(ctx.Response().Header.Peek("X-Request-ID")); got != "missing-req" {
		t.Fatalf("expected request id header missing-req, got %s", got)
	}
}

func TestForwarderHandlerPanic(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()
	ctx := app.AcquireCtx(new(fasthttp.RequestCtx))
	defer app.ReleaseCtx(ctx)
	ctx.Locals(requestIDKey, "panic-req")

	logger := logrus.New()
	logBuf := &bytes.Buffer{}
	logger.SetOutput(logBuf)

	forwarder := NewForwarder(server.ProxyHandlerFunc(func(fiber.Ctx) error {
		panic("boom")
	}), logger)

	if err := forwarder.Handle(ctx); err != nil {
		t.Fatalf("forwarder.Handle returned unexpected error: %v", err)
	}
	if status := ctx.Response().StatusCode(); status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 for handler panic, got %d", status)
	}
	if body := string(ctx.Response().Body()); !strings.Contains(body, "Internal Server Error") {
		t.Fatalf("expected generic error body, got %s", body)
	}
	if !strings.Contains(logBuf.String(), "proxy_handler_panic") || !strings.Contains(logBuf.String(), "boom") {
		t.Fatalf("expected log to describe the panic, got %s", logBuf.String())
	}
	if !strings.Contains(logBuf.String(), "panic-req") {
		t.Fatalf("expected log to include request id, got %s", logBuf.String())
	}
}

func TestForwarderPassesThrough(t *testing.T) {
	app := fiber.New()
	defer app.Shutdown()
	ctx := app.AcquireCtx(new(fasthttp.RequestCtx))
	defer app.ReleaseCtx(ctx)

	called := false
	forwarder := NewForwarder(server.ProxyHandlerFunc(func(c fiber.Ctx) error {
		called = true
		return c.SendStatus(fiber.StatusNoContent)
	}), logrus.New())

	if err := forwarder.Handle(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || ctx.Response().StatusCode() != fiber.StatusNoContent {
		t.Fatalf("wrapped handler should serve the request")
	}
}
