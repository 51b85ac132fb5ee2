// Package httpapi is the per-service HTTP client used by the session core.
// It attaches bearer and tenant headers to every request, unwraps the
// backend's response envelope, classifies every failure into a fixed error
// taxonomy, and — for the auth service only — intercepts a 401 to refresh
// the token and replay the original request exactly once.
package httpapi
