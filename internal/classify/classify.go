// Package classify maps raw clipboard text to a semantic category.
//
// Heuristics are applied to the trimmed text in order, first match wins:
//
//	color  #rgb, #rgba, #rrggbb, #rrggbbaa
//	file   \\server\share, C:\ or C:/, /absolute
//	link   http:// or https:// (case-insensitive)
//	text   everything else
package classify

import (
	"strings"

	"go.klb.dev/recall/internal/history"
)

// Result is the outcome of classifying a text payload.
type Result struct {
	Format   history.Format
	Category history.Category
	Color    *string
	FilePath *string
}

// Classify never fails; every input maps to exactly one Result.
func Classify(text string) Result {
	trimmed := strings.TrimSpace(text)

	if color, ok := DetectColor(trimmed); ok {
		return Result{
			Format:   history.FormatColor,
			Category: history.CategoryText,
			Color:    &color,
		}
	}

	if LooksLikeFilePath(trimmed) {
		return Result{
			Format:   history.FormatFile,
			Category: history.CategoryFile,
			FilePath: &trimmed,
		}
	}

	category := history.CategoryText
	if LooksLikeURL(trimmed) {
		category = history.CategoryLink
	}
	return Result{Format: history.FormatText, Category: category}
}

// DetectColor returns the trimmed text unchanged when it is a hex color.
func DetectColor(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	hex, ok := strings.CutPrefix(trimmed, "#")
	if !ok {
		return "", false
	}
	switch len(hex) {
	case 3, 4, 6, 8:
	default:
		return "", false
	}
	for i := 0; i < len(hex); i++ {
		if !isHexDigit(hex[i]) {
			return "", false
		}
	}
	return trimmed, true
}

// LooksLikeFilePath reports UNC, drive-letter and absolute Unix paths.
func LooksLikeFilePath(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, `\\`) {
		return true
	}
	if len(trimmed) >= 3 && trimmed[1] == ':' && (trimmed[2] == '\\' || trimmed[2] == '/') {
		return true
	}
	return strings.HasPrefix(trimmed, "/")
}

// LooksLikeURL reports whether text starts with an http or https scheme.
func LooksLikeURL(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
