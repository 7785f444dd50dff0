package util

import "strings"

// Safe strips backtick characters from free-form text so interpolated
// values cannot break out of code-fenced log messages.
func Safe(s string) string {
	return strings.ReplaceAll(s, "`", "")
}

// ChunkMessage splits a reply into pieces no longer than limit runes,
// breaking on newlines where possible. Discord rejects oversized messages,
// so long listings are sent as a queue of chunks.
func ChunkMessage(s string, limit int) []string {
	if limit <= 0 || len(s) <= limit {
		return []string{s}
	}

	var chunks []string
	for len(s) > limit {
		cut := strings.LastIndex(s[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, s[:cut])
		s = strings.TrimPrefix(s[cut:], "\n")
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
