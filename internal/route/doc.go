// Package route classifies inbound paths into resource classes and derives the
// upstream URL, cache key, TTL and optional transcode step for each request.
//
// Every class registers a Profile at init time (see profiles.go). The
// Classifier combines those profiles with the configured origins and TTL
// overrides. It holds no mutable state, so one instance serves all requests.
package route
