// Package tokenstore persists the access/refresh token pair across two
// cooperating backends: a process-scoped in-memory store and a durable
// Redis-backed store that other processes (and the server-side request
// preprocessing layer) can read. It also owns the advisory login/logout
// markers and the pub/sub channel that other sessions watch to keep
// themselves in sync.
package tokenstore
