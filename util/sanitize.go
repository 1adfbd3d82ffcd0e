package util

import (
	"path"
	"strings"
	"unicode"
)

// MaxFilenameLength bounds names derived from client input.
const MaxFilenameLength = 100

// keepOrReplace maps every rune that is not a letter, digit or one of
// allowed to '_'.
func keepOrReplace(s, allowed string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(allowed, r) {
			return r
		}
		return '_'
	}, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// SanitizeFilename makes a client-supplied file name safe to use as a cache
// file name. Only letters, digits, '.' and '_' survive; the result is cut to
// MaxFilenameLength and falls back to fallback when empty.
func SanitizeFilename(name, fallback string) string {
	safe := truncate(keepOrReplace(name, "._"), MaxFilenameLength)
	if safe == "" {
		return fallback
	}
	return safe
}

// SanitizeArtifactName builds the stem used for transcript artifact files.
// '-' is allowed in addition to SanitizeFilename's set.
func SanitizeArtifactName(name string) string {
	if name == "" {
		name = "transcription"
	}
	return truncate(keepOrReplace(name, "._-"), MaxFilenameLength)
}

// SanitizeClientID makes a client id safe for use as an object key segment.
func SanitizeClientID(id string) string {
	return keepOrReplace(id, "_-")
}

// SanitizeObjectPath makes a client-supplied object path suffix safe.
// Slashes are kept so callers can group results in sub-folders.
func SanitizeObjectPath(p string) string {
	return keepOrReplace(p, "/._-")
}

// IsSafeRelativePath reports whether p stays inside the directory it is
// joined to: not absolute and no ".." segment after cleaning.
func IsSafeRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return false
	}
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
