// Package scenes segments raw script text into scene units.
package scenes

import "strings"

// Split breaks text into scene strings on the literal "." delimiter. Each
// returned scene is trimmed and re-terminated with a single period; empty
// segments are dropped and empty input yields nil.
//
// Abbreviations ("Dr. Smith") and decimals ("3.14") split too. Scene counts
// and timing downstream depend on this exact splitting.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(text, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part+".")
	}
	return out
}
