package specfile

import "regexp"

// MaxExpansionDepth bounds recursive macro expansion so a chain of nested
// macros cannot loop forever.
const MaxExpansionDepth = 8

// SystemMacros is the fixed table of well-known RPM build macros. Both the
// spec analyzer and the name canonicalizer expand against this same table.
var SystemMacros = map[string]string{
	"python3_pkgversion":      "3",
	"python3_version":         "3.12",
	"python3_version_nodots":  "312",
	"__python3":               "/usr/bin/python3",
	"python3_sitelib":         "/usr/lib/python3.12/site-packages",
	"python3_sitearch":        "/usr/lib64/python3.12/site-packages",
	"lua_version":             "5.4",
	"ruby_version":            "3.2",
	"_prefix":                 "/usr",
	"_bindir":                 "/usr/bin",
	"_libdir":                 "/usr/lib64",
	"_includedir":             "/usr/include",
	"_datadir":                "/usr/share",
	"_sysconfdir":             "/etc",
	"_mandir":                 "/usr/share/man",
	"_infodir":                "/usr/share/info",
	"_localstatedir":          "/var",
	"_sharedstatedir":         "/var/lib",
}

// bracedMacro matches %{name}, %{?name}, and %{?name:default}.
var bracedMacro = regexp.MustCompile(`%\{(\??[^}]+)\}`)

// bareMacro matches a bare %name reference (no braces).
var bareMacro = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandMacros iteratively expands %{name}, %{?name}, %{?name:default} and
// bare %name references against SystemMacros, up to MaxExpansionDepth passes.
// Unknown non-optional macros are left verbatim; unresolved names are
// returned so the caller can flag them as warnings.
func ExpandMacros(value string) (expanded string, unresolved []string) {
	unresolvedSet := map[string]bool{}
	expanded = value

	for depth := 0; depth < MaxExpansionDepth; depth++ {
		changed := false

		expanded = bracedMacro.ReplaceAllStringFunc(expanded, func(m string) string {
			body := bracedMacro.FindStringSubmatch(m)[1]
			optional := false
			name := body
			def := ""
			if len(name) > 0 && name[0] == '?' {
				optional = true
				name = name[1:]
			}
			if idx := indexByte(name, ':'); idx >= 0 {
				def = name[idx+1:]
				name = name[:idx]
			}
			if v, ok := SystemMacros[name]; ok {
				changed = true
				return v
			}
			if optional {
				changed = true
				return def
			}
			unresolvedSet[name] = true
			return m
		})

		expanded = bareMacro.ReplaceAllStringFunc(expanded, func(m string) string {
			name := m[1:]
			if v, ok := SystemMacros[name]; ok {
				changed = true
				return v
			}
			unresolvedSet[name] = true
			return m
		})

		if !changed {
			break
		}
	}

	for name := range unresolvedSet {
		unresolved = append(unresolved, name)
	}
	return expanded, unresolved
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
