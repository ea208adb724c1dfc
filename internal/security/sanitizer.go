package security

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"live-quiz-service/internal/domain"
)

// MaxNicknameLength is counted in runes after sanitation.
const MaxNicknameLength = 32

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeNickname strips markup and control characters from a display name
// and checks its length.
func SanitizeNickname(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = html.UnescapeString(htmlPolicy.Sanitize(cleaned))
	cleaned = strings.TrimSpace(cleaned)

	if n := utf8.RuneCountInString(cleaned); n == 0 || n > MaxNicknameLength {
		return "", domain.ErrInvalidNickname
	}
	return cleaned, nil
}
