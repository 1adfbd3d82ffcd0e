// Package ingress places source audio in the cache for the three creation
// paths: direct upload, remote URL and object-storage key. Each path
// returns a dispatch.AcquireFunc so the dispatcher decides when the audio
// is fetched relative to record creation.
package ingress
