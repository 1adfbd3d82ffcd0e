// Package api binds the task lifecycle to HTTP: the three ingress routes,
// status polling, artifact download, manual release, queue statistics and
// the debug view. Every route identifies the caller by the Client-Id header.
package api
