package util

import (
	"strconv"
	"strings"
)

// sizeUnits is ordered so longer suffixes are tried first.
var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30}, {"MB", 20}, {"KB", 10},
	{"G", 30}, {"M", 20}, {"K", 10},
	{"B", 0},
}

// ParseSize reads a byte size such as "25MB", "512k" or "1048576". Units are
// binary. Anything unreadable, negative or empty yields fallback.
func ParseSize(s string, fallback int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s, shift = strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n << shift
}

// MaskSecret keeps the first visible runes of a credential for log lines and
// hides the rest. Values no longer than visible are hidden entirely.
func MaskSecret(s string, visible int) string {
	const mask = "***"
	r := []rune(s)
	if len(r) <= visible {
		return mask
	}
	return string(r[:visible]) + mask
}
