package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectCommand     = "zeroframe.cmd"
	SubjectEventPrefix = "zeroframe.event"
)

// BuildEventSubject builds the subject a host push is republished on,
// e.g. zeroframe.event.setSiteInfo.
func BuildEventSubject(prefix, cmd string) string {
	if prefix == "" {
		prefix = SubjectEventPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, subjectToken(cmd))
}

// BuildSiteCommandSubject scopes the command subject to one site address, for
// gateways that each front a single site.
func BuildSiteCommandSubject(base, site string) string {
	if base == "" {
		base = SubjectCommand
	}
	if site == "" {
		return base
	}
	return fmt.Sprintf("%s.%s", base, subjectToken(site))
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}
