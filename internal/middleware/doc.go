// Package middleware provides the HTTP middleware chain: request IDs,
// structured access logs, panic recovery, rate limiting, request
// deadlines, OpenTelemetry instrumentation and JSON request validation.
// Failures are answered with RFC 7807 problems through the errors package.
package middleware
