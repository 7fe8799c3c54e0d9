// Package textdifftest replays unified patches in tests so stored histories
// can be checked against stored content.
package textdifftest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Apply replays a patch produced by textdiff.Differ.Unified on top of before.
func Apply(before, patch string) (string, error) {
	oldLines := strings.SplitAfter(before, "\n")
	if oldLines[len(oldLines)-1] == "" {
		oldLines = oldLines[:len(oldLines)-1]
	}
	if patch == "" {
		return before, nil
	}
	patchLines := strings.SplitAfter(patch, "\n")
	var (
		out      []string
		pos      int
		inHunk   bool
		lastPlus bool
	)
	for _, raw := range patchLines {
		if raw == "" {
			continue
		}
		if !inHunk && (strings.HasPrefix(raw, "--- ") || strings.HasPrefix(raw, "+++ ")) {
			continue
		}
		if m := hunkHeader.FindStringSubmatch(raw); m != nil {
			inHunk = true
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			idx := start - 1
			if count == 0 {
				idx = start
			}
			if idx < pos || idx > len(oldLines) {
				return "", fmt.Errorf("hunk %q out of range", strings.TrimSpace(raw))
			}
			out = append(out, oldLines[pos:idx]...)
			pos = idx
			lastPlus = false
			continue
		}
		switch raw[0] {
		case ' ':
			out = append(out, oldLines[pos])
			pos++
			lastPlus = false
		case '-':
			pos++
			lastPlus = false
		case '+':
			out = append(out, raw[1:])
			lastPlus = true
		case '\\':
			if lastPlus {
				last := len(out) - 1
				out[last] = strings.TrimSuffix(out[last], "\n")
			}
			lastPlus = false
		default:
			return "", fmt.Errorf("unexpected patch line %q", raw)
		}
	}
	out = append(out, oldLines[pos:]...)
	return strings.Join(out, ""), nil
}
