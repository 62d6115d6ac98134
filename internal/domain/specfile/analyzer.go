package specfile

import (
	"regexp"
	"strings"

	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
)

var sourceFieldPattern = regexp.MustCompile(`(?i)^source(\d*)\s*:`)

// SpecAnalyzer parses a UTF-8 spec-file payload into a PackageInfo.
type SpecAnalyzer struct{}

// NewSpecAnalyzer returns a ready-to-use analyzer.
func NewSpecAnalyzer() *SpecAnalyzer {
	return &SpecAnalyzer{}
}

// Warning describes a non-fatal issue found while parsing.
type Warning struct {
	Line    int
	Message string
}

// Analyze parses spec-file content and returns the extracted PackageInfo
// along with any non-fatal warnings (e.g. unresolved macros). It fails with
// a *vberrors.SpecParseError when Name or Version is absent.
func (a *SpecAnalyzer) Analyze(content string) (PackageInfo, []Warning, error) {
	lines := strings.Split(content, "\n")

	var (
		name, version, release string
		buildRequires          []BuildRequirement
		sourceURLs             []string
		warnings               []Warning
	)

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "name:"):
			v, unresolved := extractValue(line)
			name = v
			warnMacros(&warnings, i+1, unresolved)

		case strings.HasPrefix(lower, "version:"):
			v, unresolved := extractValue(line)
			version = v
			warnMacros(&warnings, i+1, unresolved)

		case strings.HasPrefix(lower, "release:"):
			v, unresolved := extractValue(line)
			release = strings.SplitN(v, "%", 2)[0]
			warnMacros(&warnings, i+1, unresolved)

		case strings.HasPrefix(lower, "buildrequires:"):
			reqs, unresolved := a.parseBuildRequires(line)
			buildRequires = append(buildRequires, reqs...)
			warnMacros(&warnings, i+1, unresolved)

		case sourceFieldPattern.MatchString(line):
			v, unresolved := extractValue(line)
			if v != "" {
				sourceURLs = append(sourceURLs, v)
			}
			warnMacros(&warnings, i+1, unresolved)
		}
	}

	if name == "" {
		return PackageInfo{}, warnings, vberrors.NewSpecParseError("spec file has no Name header", nil)
	}
	if version == "" {
		return PackageInfo{}, warnings, vberrors.NewSpecParseError("spec file has no Version header", nil)
	}
	if release == "" {
		release = "1"
	}

	return PackageInfo{
		Name:          name,
		Version:       version,
		Release:       release,
		BuildRequires: buildRequires,
		SourceURLs:    sourceURLs,
	}, warnings, nil
}

func extractValue(line string) (value string, unresolved []string) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) < 2 {
		return "", nil
	}
	return ExpandMacros(strings.TrimSpace(parts[1]))
}

func warnMacros(warnings *[]Warning, lineNo int, unresolved []string) {
	for _, name := range unresolved {
		*warnings = append(*warnings, Warning{Line: lineNo, Message: "unresolved macro: " + name})
	}
}

// parseBuildRequires splits a "BuildRequires:" line into individual
// requirement tokens. A line is comma- or whitespace-separated; tokens with
// virtual-provide syntax (containing parentheses) are preserved verbatim —
// canonicalization is the responsibility of the canon package.
func (a *SpecAnalyzer) parseBuildRequires(line string) ([]BuildRequirement, []string) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) < 2 {
		return nil, nil
	}
	value, unresolved := ExpandMacrosPreservingParens(strings.TrimSpace(parts[1]))

	tokens := splitRequirementTokens(value)

	var reqs []BuildRequirement
	i := 0
	for i < len(tokens) {
		tok := strings.TrimSpace(tokens[i])
		if tok == "" {
			i++
			continue
		}

		req, matched := matchInlineOperator(tok)
		if !matched && i+2 < len(tokens) {
			next := strings.TrimSpace(tokens[i+1])
			if isOperator(next) {
				req = BuildRequirement{Name: tok, Operator: normalizeOperator(next), Version: strings.TrimSpace(tokens[i+2])}
				matched = true
				i += 2
			}
		}
		if !matched {
			req = BuildRequirement{Name: tok}
		}

		if req.Name != "" && !strings.HasPrefix(req.Name, "%") {
			reqs = append(reqs, req)
		}
		i++
	}

	return reqs, unresolved
}

// ExpandMacrosPreservingParens expands macros without disturbing
// parenthesized virtual-provide syntax; it delegates directly to
// ExpandMacros since macro tokens never appear inside the provide payload
// for the patterns this system recognizes.
func ExpandMacrosPreservingParens(value string) (string, []string) {
	return ExpandMacros(value)
}

func splitRequirementTokens(value string) []string {
	// Split on commas or on whitespace that precedes a letter, mirroring the
	// original tokenizer: this keeps "pkg >= 1.0" together while separating
	// "pkgA, pkgB pkgC".
	var tokens []string
	var cur strings.Builder
	runes := []rune(value)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ',' {
			tokens = append(tokens, cur.String())
			cur.Reset()
			continue
		}
		if r == ' ' || r == '\t' {
			// look ahead for next non-space
			j := i
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
				j++
			}
			if j < len(runes) && isAlpha(runes[j]) && cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
				i = j - 1
				continue
			}
			cur.WriteRune(r)
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func matchInlineOperator(tok string) (BuildRequirement, bool) {
	for _, op := range VersionOperators {
		if idx := strings.Index(tok, op); idx > 0 {
			name := strings.TrimSpace(tok[:idx])
			version := strings.TrimSpace(tok[idx+len(op):])
			if name != "" && version != "" {
				return BuildRequirement{Name: name, Operator: normalizeOperator(op), Version: version}, true
			}
		}
	}
	return BuildRequirement{}, false
}

func isOperator(s string) bool {
	for _, op := range VersionOperators {
		if s == op {
			return true
		}
	}
	return false
}

func normalizeOperator(op string) string {
	if op == "==" {
		return "="
	}
	return op
}
