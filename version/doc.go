// Package version reports the build of the running binary.
package version
