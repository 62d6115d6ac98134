// Package specfile parses RPM spec-file text into structured package
// metadata, including RPM macro expansion.
package specfile

import (
	"fmt"
	"strings"
)

// VersionOperators lists the recognized comparison operators, longest-match
// first so "<=" is never mis-split as "<" followed by "=".
var VersionOperators = []string{">=", "<=", "~=", "==", "=", ">", "<"}

// BuildRequirement is a single build-time dependency token, optionally
// constrained to a version.
type BuildRequirement struct {
	Name     string
	Operator string // one of VersionOperators, normalized ("==" -> "="), or "" if none
	Version  string // "" if Operator is ""
}

// String serializes the requirement back to "name op version" form. The
// round trip with Parse is a bijection modulo whitespace.
func (r BuildRequirement) String() string {
	if r.Operator != "" && r.Version != "" {
		return fmt.Sprintf("%s %s %s", r.Name, r.Operator, r.Version)
	}
	return r.Name
}

// ParseBuildRequirement parses a single "name [op version]" token.
func ParseBuildRequirement(token string) (BuildRequirement, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return BuildRequirement{}, fmt.Errorf("empty build requirement token")
	}

	for _, op := range VersionOperators {
		if idx := strings.Index(token, op); idx >= 0 {
			name := strings.TrimSpace(token[:idx])
			version := strings.TrimSpace(token[idx+len(op):])
			if name == "" || version == "" {
				continue
			}
			norm := op
			if norm == "==" {
				norm = "="
			}
			return BuildRequirement{Name: name, Operator: norm, Version: version}, nil
		}
	}

	fields := strings.Fields(token)
	switch len(fields) {
	case 1:
		return BuildRequirement{Name: fields[0]}, nil
	case 3:
		for _, op := range VersionOperators {
			if fields[1] == op {
				norm := op
				if norm == "==" {
					norm = "="
				}
				return BuildRequirement{Name: fields[0], Operator: norm, Version: fields[2]}, nil
			}
		}
	}

	return BuildRequirement{Name: token}, nil
}

// PackageInfo is the metadata extracted from a spec file.
type PackageInfo struct {
	Name         string
	Version      string
	Release      string
	Epoch        string // "" if absent
	BuildRequires []BuildRequirement
	SourceURLs   []string
}

// NVR is the conventional name-version-release identifier.
func (p PackageInfo) NVR() string {
	return fmt.Sprintf("%s-%s-%s", p.Name, p.Version, p.Release)
}
