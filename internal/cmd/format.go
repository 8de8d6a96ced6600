package cmd

import (
	"fmt"
	"strings"
	"time"
)

// formatTimestamp renders t in UTC to the second.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// formatSources joins source labels for display.
func formatSources(labels []string) string {
	return strings.Join(labels, "; ")
}

// formatRelevance formats a search relevance score with three decimals.
func formatRelevance(r float64) string {
	return fmt.Sprintf("%.3f", r)
}

// excerpt collapses whitespace and cuts s to at most n runes, marking the cut.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
