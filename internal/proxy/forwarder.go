package proxy

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/manga-hub/internal/server"
)

// Forwarder 包装实际的 ProxyHandler，把 handler 内部 panic（例如解码器崩溃）转换为
// 统一的 500 正文，而不是交给 Fiber 默认错误页。
type Forwarder struct {
	handler server.ProxyHandler
	logger  *logrus.Logger
}

// NewForwarder 创建 Forwarder，handler 为空时所有请求返回 500。
func NewForwarder(handler server.ProxyHandler, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		handler: handler,
		logger:  logger,
	}
}

// Handle 实现 server.ProxyHandler。
func (f *Forwarder) Handle(c fiber.Ctx) error {
	requestID := server.RequestID(c)
	if f.handler == nil {
		f.logError("proxy_handler_missing", nil, c, requestID)
		return respondInternal(c, requestID)
	}
	return f.invoke(c, requestID)
}

func (f *Forwarder) invoke(c fiber.Ctx, requestID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logError("proxy_handler_panic", fmt.Errorf("panic: %v", r), c, requestID)
			err = respondInternal(c, requestID)
		}
	}()
	return f.handler.Handle(c)
}

func respondInternal(c fiber.Ctx, requestID string) error {
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errInternal})
}

func (f *Forwarder) logError(code string, err error, c fiber.Ctx, requestID string) {
	if f.logger == nil {
		return
	}
	fields := logrus.Fields{
		"action": "proxy",
		"error":  code,
		"path":   string(c.Request().URI().Path()),
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		f.logger.WithFields(fields).Error(err.Error())
		return
	}
	f.logger.WithFields(fields).Error("proxy handler unavailable")
}
