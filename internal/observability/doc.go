// Package observability builds the process logger.
//
// The service logs through zap: JSON lines in deployed environments and the
// colored console encoder for local work. Request scoped fields such as the
// request id are attached by the HTTP middleware.
package observability
