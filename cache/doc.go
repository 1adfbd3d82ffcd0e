// Package cache is the shared on-disk cache that holds source audio and
// generated artifacts. All paths handed to it are relative to the cache
// root and are rejected if they could escape it.
package cache
