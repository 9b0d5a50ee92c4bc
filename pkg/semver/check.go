package semver

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const checkLogPrefix = "semver:check"

// Server identifies a running ZeroNet instance.
type Server struct {
	Version string
	Rev     int
}

// NormalizeVersion makes a ZeroNet version string SemVer-parseable: a leading
// "v" is dropped and "0.7" becomes "0.7.0".
func NormalizeVersion(version string) string {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if m := shortVersionRegex.FindStringSubmatch(v); m != nil {
		return v + ".0"
	}
	return v
}

// SatisfiesRange checks if a version string satisfies a range.
func SatisfiesRange(version, rangeStr string) bool {
	sv, err := masterminds.NewVersion(NormalizeVersion(version))
	if err != nil {
		return false
	}

	if IsMajorOnly(rangeStr) {
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}
	if IsExactVersion(rangeStr) {
		want, err := masterminds.NewVersion(rangeStr)
		return err == nil && sv.Equal(want)
	}

	constraint, err := newConstraint(rangeStr)
	if err != nil {
		return false
	}
	return constraint.Check(sv)
}

// Check reports why server does not meet req, or nil when it does.
func Check(req *Requirement, server Server) error {
	if req == nil {
		return nil
	}
	if req.Range != "" && !SatisfiesRange(server.Version, req.Range) {
		return fmt.Errorf("%s - server version %s does not satisfy %s", checkLogPrefix, server.Version, req.Range)
	}
	if req.MinRev > 0 && server.Rev < req.MinRev {
		return fmt.Errorf("%s - server rev %d is older than required rev %d", checkLogPrefix, server.Rev, req.MinRev)
	}
	return nil
}

// Compare orders two server versions. Unparseable versions sort first.
func Compare(a, b string) int {
	va, errA := masterminds.NewVersion(NormalizeVersion(a))
	vb, errB := masterminds.NewVersion(NormalizeVersion(b))
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}

func newConstraint(rangeStr string) (*masterminds.Constraints, error) {
	return masterminds.NewConstraint(rangeStr)
}
