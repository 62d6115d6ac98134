// Package canon canonicalizes RPM dependency tokens — virtual provides,
// partly-expanded macros, and plain names — into real binary package names,
// with an optional similarity-based fallback for names the rule table
// cannot rewrite.
package canon

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ssokkol/koji-vibebuild/internal/domain/specfile"
)

// caseFold normalizes a provide-payload fragment (e.g. a cmake package name)
// to lowercase the way RPM's cmake() virtual provides always render it,
// independent of the host locale.
var caseFold = cases.Lower(language.Und)

// Predictor is the narrow inference surface a similarity-based fallback
// must satisfy. internal/domain/mlfallback implements it; canon depends
// only on this interface so alternative implementations are substitutable.
type Predictor interface {
	Available() bool
	Predict(token string) (binaryName, sourceName string, distance float64, ok bool)
}

// DefaultConfidenceThreshold is θ from the spec: predictions with distance
// greater than this are discarded.
const DefaultConfidenceThreshold = 0.3

type providePattern struct {
	re        *regexp.Regexp
	transform func([]string) string
}

var providePatterns = []providePattern{
	{
		re: regexp.MustCompile(`^python(\d*)dist\((.+)\)$`),
		transform: func(g []string) string {
			n := g[1]
			if n == "" {
				n = "3"
			}
			return "python" + n + "-" + g[2]
		},
	},
	{
		re:        regexp.MustCompile(`^pkgconfig\((.+)\)$`),
		transform: func(g []string) string { return g[1] + "-devel" },
	},
	{
		re:        regexp.MustCompile(`^perl\((.+)\)$`),
		transform: func(g []string) string { return "perl-" + strings.ReplaceAll(g[1], "::", "-") },
	},
	{
		re:        regexp.MustCompile(`^rubygem\((.+)\)$`),
		transform: func(g []string) string { return "rubygem-" + g[1] },
	},
	{
		re:        regexp.MustCompile(`^npm\((.+)\)$`),
		transform: func(g []string) string { return "nodejs-" + g[1] },
	},
	{
		re:        regexp.MustCompile(`^cmake\((.+)\)$`),
		transform: func(g []string) string { return "cmake-" + caseFold.String(g[1]) },
	},
	{
		re:        regexp.MustCompile(`^tex\((.+)\)$`),
		transform: func(g []string) string { return "texlive-" + g[1] },
	},
	{
		re:        regexp.MustCompile(`^golang\((.+)\)$`),
		transform: func(g []string) string { return "golang-" + strings.ReplaceAll(g[1], "/", "-") },
	},
	{
		re:        regexp.MustCompile(`^mvn\(([^:]+):([^:]+)\)$`),
		transform: func(g []string) string { return g[2] },
	},
}

// NameCanonicalizer resolves raw dependency tokens to canonical binary
// package names. It is safe for concurrent use.
type NameCanonicalizer struct {
	mu                  sync.RWMutex
	cache               map[string]string
	predictor           Predictor
	confidenceThreshold float64
}

// Option configures a NameCanonicalizer.
type Option func(*NameCanonicalizer)

// WithPredictor enables the optional similarity-based fallback.
func WithPredictor(p Predictor) Option {
	return func(c *NameCanonicalizer) { c.predictor = p }
}

// WithConfidenceThreshold overrides θ, the default 0.3.
func WithConfidenceThreshold(t float64) Option {
	return func(c *NameCanonicalizer) { c.confidenceThreshold = t }
}

// New creates a NameCanonicalizer. The predictor is optional; canonicalizer
// degrades to rules-only when it is nil or reports itself unavailable.
func New(opts ...Option) *NameCanonicalizer {
	c := &NameCanonicalizer{
		cache:               make(map[string]string),
		confidenceThreshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Canonicalize resolves a single raw dependency token to a real package
// name. The pipeline is: cache -> macro expansion -> virtual-provide
// rewrite -> ML fallback (if enabled) -> identity.
func (c *NameCanonicalizer) Canonicalize(token string) string {
	if token == "" {
		return token
	}

	c.mu.RLock()
	if v, ok := c.cache[token]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	expanded, _ := specfile.ExpandMacros(token)

	if resolved, ok := resolveVirtualProvide(expanded); ok {
		c.store(token, resolved)
		return resolved
	}

	if c.predictor != nil && c.predictor.Available() && strings.Contains(expanded, "(") {
		if bin, _, distance, ok := c.predictor.Predict(expanded); ok && distance <= c.confidenceThreshold {
			c.store(token, bin)
			return bin
		}
	}

	c.store(token, expanded)
	return expanded
}

func (c *NameCanonicalizer) store(token, result string) {
	c.mu.Lock()
	c.cache[token] = result
	c.mu.Unlock()
}

func resolveVirtualProvide(name string) (string, bool) {
	for _, p := range providePatterns {
		if m := p.re.FindStringSubmatch(name); m != nil {
			return p.transform(m), true
		}
	}
	return "", false
}

// CandidateSourceNames produces probable source-archive names for a binary
// package name, ordered "typically shorter name first, then binary form
// verbatim".
func CandidateSourceNames(binaryName string) []string {
	switch {
	case strings.HasPrefix(binaryName, "python3-"):
		base := strings.TrimPrefix(binaryName, "python3-")
		return dedupe([]string{"python-" + base, binaryName})
	case strings.HasPrefix(binaryName, "python2-"):
		base := strings.TrimPrefix(binaryName, "python2-")
		return dedupe([]string{"python-" + base, binaryName})
	case strings.HasSuffix(binaryName, "-devel"):
		return dedupe([]string{strings.TrimSuffix(binaryName, "-devel"), binaryName})
	case strings.HasSuffix(binaryName, "-libs"):
		return dedupe([]string{strings.TrimSuffix(binaryName, "-libs"), binaryName})
	case strings.HasPrefix(binaryName, "perl-"),
		strings.HasPrefix(binaryName, "rubygem-"),
		strings.HasPrefix(binaryName, "nodejs-"),
		strings.HasPrefix(binaryName, "golang-"):
		return []string{binaryName}
	default:
		return []string{binaryName}
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
