package cli

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/roach88/reanchor/internal/ir"
)

// explainContext renders a unified diff of the recorded context against
// the context actually found around a match. An empty string means the
// context matches exactly.
func explainContext(sel ir.Selector, prefix, suffix string) string {
	recorded := contextLines(sel.Prefix, sel.Exact, sel.Suffix)
	actual := contextLines(prefix, sel.Exact, suffix)

	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        recorded,
		B:        actual,
		FromFile: "recorded",
		ToFile:   "document",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return s
}

func contextLines(prefix, exact, suffix string) []string {
	return []string{
		"prefix: " + quoteLine(prefix) + "\n",
		"exact:  " + quoteLine(exact) + "\n",
		"suffix: " + quoteLine(suffix) + "\n",
	}
}

// quoteLine keeps a context string on one diff line.
func quoteLine(s string) string {
	return strings.NewReplacer("\\", `\\`, "\n", `\n`, "\r", `\r`).Replace(s)
}
