package compose

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff of two documents. Unchanged lines are prefixed
// with two spaces, removed lines with "- " and added lines with "+ ".
// It returns "" when the documents are equal.
func Diff(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range splitLines(d.Text) {
			out.WriteString(prefix)
			out.WriteString(trimEOL(line))
			out.WriteString("\n")
		}
	}
	return out.String()
}
