// Package util holds small helpers shared across the transcriber:
// name sanitizers for client-supplied file names and object keys, size
// parsing for configuration and generic pointer helpers.
package util
