// Package middleware holds the HTTP middleware of the gold read API:
// request logging, token-bucket rate limiting, security headers and
// OpenTelemetry request instrumentation.
package middleware
