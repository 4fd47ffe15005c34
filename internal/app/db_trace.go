package app

import "strings"

// Span attributes have a soft size limit at the collector; long IN lists
// and column sets get cut rather than dropped.
const tracedQueryMaxLen = 512

// formatDBQueryForTrace collapses whitespace so multi-line repository SQL
// reads as one line in trace viewers, truncating oversized statements.
func formatDBQueryForTrace(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}

	normalized := strings.Join(fields, " ")
	if len(normalized) <= tracedQueryMaxLen {
		return normalized
	}

	return normalized[:tracedQueryMaxLen] + "..."
}
