// Package acl decides which commands a gateway forwards to its ZeroNet host.
package acl

import "strings"

// Policy lists command patterns. A pattern is an exact command name, a prefix
// ending in "*", or "*" alone. Deny wins over Allow; an empty Allow admits all.
type Policy struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Allow       []string `json:"allow"`
	Deny        []string `json:"deny"`
}

// Allowed reports whether cmd may be forwarded.
func (p *Policy) Allowed(cmd string) bool {
	if p == nil {
		return true
	}
	if matchAny(p.Deny, cmd) {
		return false
	}
	if len(p.Allow) == 0 {
		return true
	}
	return matchAny(p.Allow, cmd)
}

func matchAny(patterns []string, cmd string) bool {
	for _, pat := range patterns {
		if match(pat, cmd) {
			return true
		}
	}
	return false
}

func match(pattern, cmd string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(cmd, prefix)
	}
	return pattern == cmd
}
