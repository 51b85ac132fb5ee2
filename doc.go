// Package authkit is the client-side session and authorization core for the
// parceldesk back-office. It owns token persistence, refresh-token
// coordination, account-status workflow gating, and coarse access-level
// decisions, and exposes them through a single [Manager] built via
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Manager], [Builder], [Config],
// and value types (Snapshot, LoginResult, MetricsSnapshot, etc.). Token
// storage lives in the tokenstore package, transport and error classification
// in httpapi, and the access-tier policy in access. Page rendering, form
// handling, and the per-resource REST clients of the back-office are external
// collaborators and never appear here.
//
// # Concurrency contract
//
// Manager methods are safe to call from multiple goroutines. CheckAuth and
// RefreshSession are globally deduplicated: overlapping callers share one
// in-flight network operation and observe the same outcome. Background work
// (status refresh, server-side logout notification) is detached from the
// caller; its failures are logged and never surfaced through a result type.
package authkit
