// Package strcase converts Go identifiers for API-facing field names.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake turns "RuleID" into "rule_id" and "HTTPStatus" into
// "http_status". An underscore goes before an upper-case rune that follows a
// lower-case rune or digit, or that starts a word after an acronym.
func ToLowerSnake(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			afterWord := unicode.IsLower(prev) || unicode.IsDigit(prev)
			endsAcronym := unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if afterWord || endsAcronym {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
