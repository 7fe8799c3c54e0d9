// Package textdiff renders human-readable unified patches between two text
// snapshots. Patches are meant for display; the service never reapplies them.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sourcegraph/go-diff/diff"
)

const (
	// DefaultContext is the number of unchanged lines kept around each hunk.
	DefaultContext = 3

	fromFile = "before"
	toFile   = "after"

	noNewlineMarker = `\ No newline at end of file`
)

// Differ produces unified patches with a fixed amount of context.
type Differ struct {
	context int
}

// New builds a Differ. A negative context falls back to DefaultContext.
func New(context int) *Differ {
	if context < 0 {
		context = DefaultContext
	}
	return &Differ{context: context}
}

// Unified returns the patch turning before into after. Identical snapshots
// produce an empty patch.
func (d *Differ) Unified(before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  d.context,
	})
	if err != nil {
		return "", fmt.Errorf("render unified diff: %w", err)
	}
	return patch, nil
}

// Stat summarises a patch for display next to a revision.
type Stat struct {
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
	Hunks        int `json:"hunks"`
}

// Stats parses a patch produced by Unified and counts its changed lines.
func Stats(patch string) (Stat, error) {
	if strings.TrimSpace(patch) == "" {
		return Stat{}, nil
	}
	fileDiff, err := godiff.ParseFileDiff([]byte(patch))
	if err != nil {
		return Stat{}, fmt.Errorf("parse unified diff: %w", err)
	}
	stat := Stat{Hunks: len(fileDiff.Hunks)}
	for _, hunk := range fileDiff.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				stat.LinesAdded++
			case strings.HasPrefix(line, "-"):
				stat.LinesRemoved++
			}
		}
	}
	return stat, nil
}

// splitLines keeps line terminators so the patch reproduces the text exactly.
// A final line without a newline carries the conventional marker, which makes
// "a" and "a\n" distinct lines for the matcher.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n" + noNewlineMarker + "\n"
	return lines
}
