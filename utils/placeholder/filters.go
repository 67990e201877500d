package placeholder

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filter transforms a resolved value, e.g. {{title|slug}}.
type Filter func(string) string

func defaultFilters() map[string]Filter {
	titleCaser := cases.Title(language.English)
	return map[string]Filter{
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"title": titleCaser.String,
		"trim":  strings.TrimSpace,
		"slug":  func(s string) string { return strings.Join(words(strings.ToLower(s)), "-") },
		"snake": func(s string) string { return strings.Join(words(strings.ToLower(s)), "_") },
		"camel": camel,
	}
}

// words splits s on every run of characters that are not letters or digits.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func camel(s string) string {
	parts := words(s)
	for i, p := range parts {
		lower := strings.ToLower(p)
		if i == 0 {
			parts[i] = lower
			continue
		}
		r := []rune(lower)
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, "")
}
