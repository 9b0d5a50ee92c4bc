package acl

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

const logPrefix = "acl:loader"

// LoadPolicy loads the gateway policy. It tries paths in order: first any paths
// passed in, then ZEROFRAME_ACL_FILE, then defaults. An unreadable file is skipped;
// a file that exists but does not parse is an error.
func LoadPolicy(paths ...string) (*Policy, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("ZEROFRAME_ACL_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/acl.json", "acl.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var policy Policy
		if err := json.Unmarshal(data, &policy); err != nil {
			return nil, fmt.Errorf("%s - failed to parse policy file %s: %w", logPrefix, p, err)
		}

		slog.Info(fmt.Sprintf("%s - Loaded policy %q from %s", logPrefix, policy.Name, p))
		return &policy, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default policy", logPrefix))
	return DefaultPolicy(), nil
}

// DefaultPolicy forwards everything except commands that expose keys or stop the host.
func DefaultPolicy() *Policy {
	return &Policy{
		Name:        "zeroframe-default",
		Description: "Forward all site commands; block key disclosure and server control",
		Deny: []string{
			"userShowMasterSeed",
			"serverShutdown",
			"serverUpdate",
			"configSet",
			"siteDelete",
		},
	}
}
