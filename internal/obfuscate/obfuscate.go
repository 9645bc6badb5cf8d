// Package obfuscate decides which configuration values are sensitive and
// masks them for display. It is used by every path that prints or logs a
// credential or secret value.
package obfuscate

import (
	"strings"
	"unicode/utf8"
)

// sensitiveWords are matched case-insensitively anywhere in a key name.
var sensitiveWords = []string{"secret", "secrt", "password", "passwd"}

const (
	cryptWord = "crypt"

	// cryptKeyIDSuffix exempts key names such as "s3.encrypt_key_id": the
	// value is a KMS key identifier, not key material.
	cryptKeyIDSuffix = "_key_id"
)

// ShouldObfuscate reports whether the given key name looks like it holds a
// sensitive value. A key is sensitive when it contains "secret", "secrt",
// "password", "passwd" or "crypt" (case-insensitive), except that a "crypt"
// immediately followed by "_key_id" at the very end of the name does not
// count.
func ShouldObfuscate(key string) bool {
	lower := strings.ToLower(key)
	for _, w := range sensitiveWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	for offset := 0; ; {
		i := strings.Index(lower[offset:], cryptWord)
		if i < 0 {
			return false
		}
		end := offset + i + len(cryptWord)
		if lower[end:] != cryptKeyIDSuffix {
			return true
		}
		offset = end
	}
}

// Value returns value unchanged when show is true, otherwise a string of
// asterisks with one asterisk per character of value.
func Value(value string, show bool) string {
	if show {
		return value
	}
	return strings.Repeat("*", utf8.RuneCountInString(value))
}

// KeyValue masks value only when key is sensitive and show is false.
func KeyValue(key, value string, show bool) string {
	if ShouldObfuscate(key) {
		return Value(value, show)
	}
	return value
}

// Map returns a copy of m in which every string value whose key is
// sensitive has been masked. Nested maps are processed recursively. The
// input map is never modified. A nil or empty map yields nil; show returns
// m itself.
func Map(m map[string]any, show bool) map[string]any {
	if len(m) == 0 {
		return nil
	}
	if show {
		return m
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = Map(tv, false)
		case string:
			if ShouldObfuscate(k) {
				out[k] = Value(tv, false)
			} else {
				out[k] = tv
			}
		default:
			out[k] = v
		}
	}
	return out
}
