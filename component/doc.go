// Package component defines the lifecycle contract shared by the
// transcriber's infrastructure: Start, Stop and Health, plus a Registry
// that runs them in order. bootstrap.App drives the registry; the health
// endpoint reports Registry.HealthAll through Overall.
package component
