package common

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Caser that returns Title case for a string.
var titleCaser = cases.Title(language.AmericanEnglish)

// TitleCaser title cases text
func TitleCaser(text string) string {
	return titleCaser.String(text)
}

var actionPrefixes = []string{"v_", "pc_", "ui_"}

// FormatActionName turns an internal action name such as "v_strafe_up" or
// "ui_toggleMining" into something a person can read ("Strafe Up",
// "Toggle Mining").
func FormatActionName(name string) string {
	for _, prefix := range actionPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	words := strings.Fields(strings.ReplaceAll(splitCamel(name), "_", " "))
	return TitleCaser(strings.Join(words, " "))
}

// splitCamel inserts a space at lower->upper boundaries
func splitCamel(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
