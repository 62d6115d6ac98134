package specfile

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// normalizeRPMVersion rewrites an RPM version string (e.g. "1.21.3",
// "2.3", "4") into a form golang.org/x/mod/semver accepts: a leading "v"
// and exactly three dot-separated numeric components. RPM versions omit
// trailing zero components far more often than Go modules do, so missing
// minor/patch segments are padded with zeroes; any component that is not a
// plain integer (rc/beta tags, single-letter suffixes, or a third segment
// that still holds further dots) becomes 0 rather than being guessed at.
func normalizeRPMVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	parts := strings.SplitN(v, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			parts[i] = "0"
		}
	}
	return "v" + strings.Join(parts, ".")
}

// CompareVersions orders two RPM version strings using semantic-version
// rules. Result follows semver.Compare: -1 if a<b, 0 if equal, 1 if a>b.
func CompareVersions(a, b string) int {
	return semver.Compare(normalizeRPMVersion(a), normalizeRPMVersion(b))
}

// Satisfies reports whether actualVersion meets the requirement's
// operator/version constraint. A requirement with no operator is always
// satisfied by any version of the same name.
func (r BuildRequirement) Satisfies(actualVersion string) bool {
	if r.Operator == "" || r.Version == "" {
		return true
	}
	cmp := CompareVersions(actualVersion, r.Version)
	switch r.Operator {
	case "=":
		return cmp == 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	default:
		return true
	}
}
