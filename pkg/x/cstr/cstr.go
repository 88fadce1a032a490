// Package cstr provides the lenient string helpers the device console and
// pin functions rely on: C atoi and clamped substrings.
package cstr

import "math"

// Atoi parses s the way C atoi does: leading whitespace is skipped, an
// optional sign is accepted, digits are consumed until the first
// non-digit. It returns 0 if no digits are found and saturates at the
// int32 range.
func Atoi(s string) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	var n int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
		if n > math.MaxInt32+1 {
			n = math.MaxInt32 + 1
		}
	}
	if neg {
		n = -n
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	return int(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Substring returns s[from:to] with both bounds clamped to len(s).
// An empty string is returned when from >= to.
func Substring(s string, from, to int) string {
	if to > len(s) {
		to = len(s)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return ""
	}
	return s[from:to]
}

// CharAt returns the byte at index i or 0 if out of range.
func CharAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}
