package storage

import (
	"errors"
	"path"
	"strings"

	"github.com/kbukum/transcriber/util"
)

// ErrInvalidResultsPath is returned for a results path that could escape its namespace.
var ErrInvalidResultsPath = errors.New("results path must not start or end with '/' or contain '..'")

// ValidateResultsPath checks a client supplied results path fragment.
func ValidateResultsPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") || strings.Contains(p, "..") {
		return ErrInvalidResultsPath
	}
	return nil
}

// ResultKey builds <prefix>/<client>/<suffix><ext> with client id and
// suffix sanitized.
func ResultKey(prefix, clientID, suffix, ext string) string {
	return path.Join(prefix, util.SanitizeClientID(clientID), util.SanitizeObjectPath(suffix)) + ext
}

// BaseName returns the last segment of an object key.
func BaseName(key string) string {
	key = strings.TrimRight(key, "/")
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
