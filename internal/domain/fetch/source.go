package fetch

// Source describes one place an archive can be downloaded from, tried in
// increasing priority order (lower first).
type Source struct {
	ID       string
	BaseURL  string
	Priority int

	// HubBacked sources download a pre-built source archive directly from
	// the hub (`download-build --arch=src`). Non-hub sources fetch a spec
	// plus its declared sources and locally rebuild the archive.
	HubBacked bool
}

// DefaultSources mirrors the reference fetcher's two built-in sources: the
// hub itself, and a spec-and-sources repository as fallback.
func DefaultSources() []Source {
	return []Source{
		{ID: "hub", BaseURL: "", Priority: 10, HubBacked: true},
		{ID: "upstream-src", BaseURL: "https://src.fedoraproject.org/rpms", Priority: 20},
	}
}
