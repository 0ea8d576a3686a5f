package reflectschema

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	snakeBoundary1 = regexp.MustCompile("([a-z0-9])([A-Z])")
	snakeBoundary2 = regexp.MustCompile("([A-Z])([A-Z][a-z])")
)

// toSnakeCase converts a CamelCase Go type name into snake_case, handling
// acronym runs like "HTTPServer" -> "http_server".
func toSnakeCase(name string) string {
	if name == "" {
		return name
	}
	s := snakeBoundary1.ReplaceAllString(name, "${1}_${2}")
	s = snakeBoundary2.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

// pluralize applies the small set of regular English pluralization rules
// needed for default table names; irregular plurals need an explicit
// TableName() override on the record type.
func pluralize(word string) string {
	if word == "" {
		return word
	}
	switch {
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"),
		strings.HasSuffix(word, "z"), strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return word + "es"
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(rune(word[len(word)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(word, "f"):
		return word[:len(word)-1] + "ves"
	default:
		return word + "s"
	}
}

// defaultTableName derives the structural table name for a record type name
// absent an explicit TableName() override.
func defaultTableName(typeName string) string {
	return pluralize(toSnakeCase(typeName))
}
