package storyimpl

import "strings"

// normalizeLanguage turns identity-service language codes like "EN_us"
// into the template suffix form "en-us".
func normalizeLanguage(lang string) string {
	return strings.ReplaceAll(strings.ToLower(lang), "_", "-")
}
