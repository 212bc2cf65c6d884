package strx

import "strings"

// Coalesce returns s if non-empty, otherwise d.
func Coalesce(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// SplitTarget splits "<actor>:<action>" on the first colon. ok is false when s has no colon.
func SplitTarget(s string) (actorName, actionName string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// JoinTarget is the inverse of SplitTarget.
func JoinTarget(actorName, actionName string) string { return actorName + ":" + actionName }
