package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/manga-hub/internal/cache"
	"github.com/any-hub/manga-hub/internal/logging"
	"github.com/any-hub/manga-hub/internal/route"
	"github.com/any-hub/manga-hub/internal/server"
	"github.com/any-hub/manga-hub/internal/transcode"
	"github.com/any-hub/manga-hub/internal/upstream"
)

// 对外只暴露两种错误正文，细节仅写入日志。
const (
	errInvalidOperation = "Invalid operation"
	errInternal         = "Internal Server Error"
)

// Fetcher 抽象上游读取，*upstream.Fetcher 即其实现。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchStream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options 汇总 Handler 的依赖，均在启动阶段创建一次。
type Options struct {
	Classifier *route.Classifier
	Store      cache.Store
	Fetcher    Fetcher
	Transcoder transcode.Transcoder
	Logger     *logrus.Logger
	// Coalesce 为 true 时，同一缓存键的并发未命中只回源一次。
	Coalesce bool
}

// Handler 负责 orchestrate “路由判定 → 缓存查找 → 回源/转码 → 写缓存 → 响应” 的全流程。
type Handler struct {
	classifier *route.Classifier
	store      cache.Store
	fetcher    Fetcher
	transcoder transcode.Transcoder
	logger     *logrus.Logger
	coalesce   bool
	flights    singleflight.Group
}

// NewHandler 校验依赖并构造 Handler。
func NewHandler(opts Options) (*Handler, error) {
	if opts.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("upstream fetcher is required")
	}
	if opts.Transcoder == nil {
		return nil, errors.New("transcoder is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Handler{
		classifier: opts.Classifier,
		store:      opts.Store,
		fetcher:    opts.Fetcher,
		transcoder: opts.Transcoder,
		logger:     logger,
		coalesce:   opts.Coalesce,
	}, nil
}

// result 是一次回源（或合并回源）产出的完整响应体。
type result struct {
	payload     []byte
	contentType string
}

// Handle 实现 server.ProxyHandler。任何失败都只返回通用错误正文，缓存保持不变。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}

	switch c.Method() {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodPost:
	default:
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": errInvalidOperation})
	}

	query := route.CollectQuery(string(c.Request().URI().QueryString()))
	decision, err := h.classifier.Classify(string(c.Request().URI().Path()), query)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"action":     "route",
			"path":       string(c.Request().URI().Path()),
			"request_id": requestID,
		}).Info("invalid_route")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errInvalidOperation})
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	writer := cache.NewStrategyWriter(h.store, cache.Policy{
		Cacheable:   decision.Cacheable,
		TTL:         decision.TTL,
		ContentType: decision.ContentType,
	})

	if writer.Enabled() {
		entry, err := writer.Lookup(ctx, decision.CacheKey)
		switch {
		case err == nil:
			return h.respond(c, decision, requestID, started, result{
				payload:     entry.Payload,
				contentType: entry.ContentType,
			}, true)
		case errors.Is(err, cache.ErrNotFound):
			// miss
		default:
			h.logger.WithError(err).WithFields(h.fields(decision, requestID, false)).Warn("cache_get_failed")
		}
	}

	res, err := h.load(ctx, decision, writer, requestID)
	if err != nil {
		fields := logging.WithElapsed(h.fields(decision, requestID, false), started)
		fields["status"] = fiber.StatusInternalServerError
		var upErr *upstream.UpstreamError
		if errors.As(err, &upErr) {
			fields["upstream_status"] = upErr.StatusCode
			fields["upstream_timeout"] = upErr.Timeout
		}
		h.logger.WithError(err).WithFields(fields).Error("proxy_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errInternal})
	}
	return h.respond(c, decision, requestID, started, res, false)
}

// load 回源并写入缓存；可缓存请求在开启合并时共享同一次回源。
func (h *Handler) load(ctx context.Context, decision route.Decision, writer cache.StrategyWriter, requestID string) (result, error) {
	if !h.coalesce || !writer.Enabled() {
		return h.fetchAndStore(ctx, decision, writer, requestID)
	}

	// 共享回源不跟随单个请求的取消，由上游 http.Client 的超时约束；
	// 每个调用方仍按自己的 ctx 截止时间返回。
	shared := context.WithoutCancel(ctx)
	ch := h.flights.DoChan(decision.CacheKey, func() (interface{}, error) {
		return h.fetchAndStore(shared, decision, writer, requestID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return result{}, res.Err
		}
		return res.Val.(result), nil
	case <-ctx.Done():
		return result{}, &upstream.UpstreamError{
			URL:        decision.UpstreamURL,
			StatusCode: http.StatusGatewayTimeout,
			Timeout:    true,
			Err:        ctx.Err(),
		}
	}
}

func (h *Handler) fetchAndStore(ctx context.Context, decision route.Decision, writer cache.StrategyWriter, requestID string) (result, error) {
	payload, err := h.produce(ctx, decision)
	if err != nil {
		return result{}, err
	}
	res := result{payload: payload, contentType: decision.ContentType}

	if _, err := writer.Put(ctx, decision.CacheKey, payload); err != nil {
		// 写缓存失败不影响本次响应。
		entry := h.logger.WithError(err).WithFields(h.fields(decision, requestID, false))
		if errors.Is(err, cache.ErrStoreFull) {
			entry.Warn("cache_store_full")
		} else {
			entry.Error("cache_put_failed")
		}
	}
	return res, nil
}

// produce 按资源类别取得最终响应体：JSON 原样校验，图片按规格转码，旗帜 SVG 直通。
func (h *Handler) produce(ctx context.Context, decision route.Decision) ([]byte, error) {
	if decision.Transcode != nil {
		body, err := h.fetcher.FetchStream(ctx, decision.UpstreamURL)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		out, err := h.transcoder.Transcode(ctx, body, *decision.Transcode)
		if err != nil {
			return nil, fmt.Errorf("transcode %s: %w", decision.UpstreamURL, err)
		}
		return out, nil
	}

	payload, err := h.fetcher.Fetch(ctx, decision.UpstreamURL)
	if err != nil {
		return nil, err
	}
	if decision.ContentType == fiber.MIMEApplicationJSON && !json.Valid(payload) {
		return nil, &upstream.UpstreamError{
			URL:        decision.UpstreamURL,
			StatusCode: http.StatusOK,
			Message:    "response is not valid json",
		}
	}
	return payload, nil
}

func (h *Handler) respond(
	c fiber.Ctx,
	decision route.Decision,
	requestID string,
	started time.Time,
	res result,
	cacheHit bool,
) error {
	contentType := res.contentType
	if contentType == "" {
		contentType = decision.ContentType
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set("X-Manga-Hub-Cache-Hit", fmt.Sprintf("%t", cacheHit))
	c.Status(fiber.StatusOK)

	fields := logging.WithElapsed(h.fields(decision, requestID, cacheHit), started)
	fields["status"] = fiber.StatusOK
	fields["bytes"] = len(res.payload)
	h.logger.WithFields(fields).Info("proxy_complete")

	if c.Method() == fiber.MethodHead {
		c.Response().Header.SetContentLength(len(res.payload))
		return nil
	}
	// Payload 可能来自缓存，复制后再交给 fasthttp，避免与并发读者共享底层数组。
	return c.Send(bytes.Clone(res.payload))
}

func (h *Handler) fields(decision route.Decision, requestID string, cacheHit bool) logrus.Fields {
	fields := logging.RequestFields(string(decision.Class), decision.CacheKey, decision.UpstreamURL, cacheHit)
	fields["action"] = "proxy"
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if decision.Title != "" {
		fields["title"] = decision.Title
	}
	return fields
}
