// Package cache defines the in-memory, TTL-bounded store that keeps upstream
// payloads (JSON bodies, transcoded WebP images, flag SVGs) keyed by their
// upstream URL. Expiry is evaluated lazily on read; there is no janitor
// goroutine. One Store is created per process at startup and handed to the
// proxy handler explicitly, so tests can build isolated instances.
package cache
