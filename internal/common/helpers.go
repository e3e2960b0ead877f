// Package common contains shared utilities used across the project:
// identity normalization and the reason-key codec.
package common

import (
	"encoding/base64"
	"strconv"
	"strings"
	"unicode"
)

// FormatCount renders a counter for event payloads.
func FormatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

// NormalizeName produces the stable-key form of a display name:
// lowercased, trimmed, with leading/trailing punctuation stripped.
// Used whenever a user is referenced by name instead of platform id,
// so "@Derp," and "derp" land on the same record.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimFunc(name, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// NormalizeReason canonicalizes free-text reasons before encoding:
// lowercase, trimmed, inner whitespace collapsed to single spaces.
// "Being  Awesome " and "being awesome" become one bucket.
func NormalizeReason(reason string) string {
	return strings.Join(strings.Fields(strings.ToLower(reason)), " ")
}

// EncodeReasonKey turns free text into the opaque key stored in the
// reasons map. Base64 keeps arbitrary text (dots, emoji, quotes) safe
// as a document field name.
func EncodeReasonKey(reason string) string {
	norm := NormalizeReason(reason)
	if norm == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(norm))
}

// DecodeReasonKey reverses EncodeReasonKey. Round trip:
// DecodeReasonKey(EncodeReasonKey(x)) == NormalizeReason(x).
func DecodeReasonKey(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// EncodeRecipientKey encodes a recipient's stable key for use as a
// field name in the sender's points_given map. Same codec as reason
// keys so dotted names ("peter.parker.min") stay one field.
func EncodeRecipientKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
