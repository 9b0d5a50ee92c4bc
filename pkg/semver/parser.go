// Package semver parses and checks ZeroNet server version requirements.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const logPrefix = "semver:parser"

// Requirement is a parsed server requirement such as ">=0.7.0 rev>=4500".
type Requirement struct {
	// Range is a SemVer constraint, a major-only specifier ("0") or empty.
	Range string
	// MinRev is the lowest acceptable revision; 0 means any.
	MinRev int
	// Raw input string
	Raw string
}

var (
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
	revRegex          = regexp.MustCompile(`^rev\s*>=\s*(\d+)$`)
	shortVersionRegex = regexp.MustCompile(`^(\d+)\.(\d+)$`)
)

// ParseRequirement parses a requirement string. Terms are separated by spaces
// or commas; a "rev>=N" term sets MinRev and every other term joins Range.
//
// Supported formats:
//   - 0.7                (major.minor, read as ~0.7.0)
//   - 0                  (major only)
//   - 0.7.6              (exact version)
//   - ^0.7.0, ~0.7.0     (caret, tilde range)
//   - >=0.7.0 <0.9.0     (comparison range)
//   - >=0.7.0 rev>=4500  (range plus revision)
func ParseRequirement(input string) (*Requirement, error) {
	raw := strings.TrimSpace(input)
	req := &Requirement{Raw: raw}

	var ranges []string
	for _, term := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if m := revRegex.FindStringSubmatch(term); m != nil {
			rev, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("%s - invalid revision in %q: %w", logPrefix, raw, err)
			}
			req.MinRev = rev
			continue
		}
		if strings.HasPrefix(term, "rev") {
			return nil, fmt.Errorf("%s - only rev>=N is supported, got %q", logPrefix, term)
		}
		if m := shortVersionRegex.FindStringSubmatch(term); m != nil {
			term = "~" + term + ".0"
		}
		ranges = append(ranges, term)
	}
	req.Range = strings.Join(ranges, " ")

	if req.Range != "" && !IsMajorOnly(req.Range) && !IsExactVersion(req.Range) {
		if _, err := newConstraint(req.Range); err != nil {
			return nil, fmt.Errorf("%s - invalid version range %q: %w", logPrefix, req.Range, err)
		}
	}
	return req, nil
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	major, err := strconv.Atoi(rangeStr)
	if err != nil {
		return -1
	}
	return major
}

func (r *Requirement) String() string {
	parts := make([]string, 0, 2)
	if r.Range != "" {
		parts = append(parts, r.Range)
	}
	if r.MinRev > 0 {
		parts = append(parts, fmt.Sprintf("rev>=%d", r.MinRev))
	}
	return strings.Join(parts, " ")
}
