package util

import "strings"

// ParseChannelMention extracts the channel id from a <#id> mention.
// A bare numeric id is accepted as-is.
func ParseChannelMention(s string) (string, bool) {
	if strings.HasPrefix(s, "<#") && strings.HasSuffix(s, ">") {
		s = s[2 : len(s)-1]
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}
