// Package server hosts the Fiber HTTP service and its middleware chain:
// request IDs, CORS headers with preflight answers, and panic recovery in
// front of a single proxy handler. It also owns the shared upstream
// http.Client so every outbound request reuses one pooled transport.
// Diagnostics under /-/ bypass the proxy handler and are registered by the
// routes subpackage.
package server
