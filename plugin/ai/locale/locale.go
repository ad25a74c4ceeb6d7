// Package locale normalizes user locales and renders user-facing text in English and Hebrew.
package locale

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/hrygo/babywise/plugin/ai/aitime"
)

// Supported locale codes.
const (
	English = "en"
	Hebrew  = "he"
	Arabic  = "ar"

	Default = English
)

var matcher = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.Hebrew,
	language.Arabic,
})

// Normalize resolves the locale of a message. Hebrew script in the message
// selects Hebrew; otherwise the requested locale is matched against the
// supported set, falling back to English.
func Normalize(requested, message string) string {
	if aitime.IsHebrew(message) {
		return Hebrew
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return Default
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return Default
	}
	matched, _, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Default
	}
	base, _ := matched.Base()
	switch base.String() {
	case Hebrew:
		return Hebrew
	case Arabic:
		return Arabic
	default:
		return Default
	}
}

// IsRTL reports whether locale is written right to left.
func IsRTL(locale string) bool {
	return locale == Hebrew || locale == Arabic
}
