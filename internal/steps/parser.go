// Package steps turns free-text test step instructions into discrete steps.
package steps

import (
	"regexp"
	"strings"
)

// enumeratorChars are the characters stripped from the start of a line
// to remove list numbering such as "1.", "2) " or "- ".
const enumeratorChars = "0123456789.-) "

// markerPattern matches a leading "Step:" or "Step 3:" marker.
var markerPattern = regexp.MustCompile(`^(?i)step\s*\d*\s*:\s?`)

// Parse splits raw step text into an ordered list of non-empty steps.
//
// The result is never empty: when no usable line remains, the raw text
// is returned unchanged as the only step.
func Parse(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	parsed := make([]string, 0, len(lines))
	for _, line := range lines {
		if step := normalize(line); step != "" {
			parsed = append(parsed, step)
		}
	}

	if len(parsed) == 0 {
		return []string{raw}
	}
	return parsed
}

// normalize strips one leading enumerator and then one step marker.
func normalize(line string) string {
	line = strings.TrimLeft(strings.TrimSpace(line), enumeratorChars)
	line = markerPattern.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// Join renders parsed steps back into newline separated text.
func Join(steps []string) string {
	return strings.Join(steps, "\n")
}
