// Package fetch downloads source archives for a package name from a
// prioritized list of upstream sources, with on-disk caching and
// at-most-once collapsing of concurrent duplicate fetches.
package fetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ssokkol/koji-vibebuild/internal/domain/canon"
	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
)

// SpecFetcher retrieves the raw spec text for a package name from a
// non-hub-backed source, so the fallback path can extract Source lines
// before rebuilding a source archive locally.
type SpecFetcher interface {
	FetchSpec(ctx context.Context, baseURL, packageName, release string) (string, error)
}

// Fetcher downloads and caches source archives.
type Fetcher struct {
	hub        ports.HubClient
	downloader ports.ArchiveDownloader
	specs      SpecFetcher
	runner     ports.CommandRunner
	logger     ports.Logger

	cacheDir      string
	sources       []Source
	fedoraRelease string
	hubTarget     string

	mu       sync.Mutex
	inFlight map[string]*inFlightFetch
}

type inFlightFetch struct {
	done chan struct{}
	path string
	err  error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithSources(sources []Source) Option {
	return func(f *Fetcher) {
		sorted := append([]Source(nil), sources...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
		f.sources = sorted
	}
}

func WithFedoraRelease(release string) Option {
	return func(f *Fetcher) { f.fedoraRelease = release }
}

func WithSpecFetcher(sf SpecFetcher) Option {
	return func(f *Fetcher) { f.specs = sf }
}

func WithLogger(l ports.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher that caches archives under cacheDir.
func New(hub ports.HubClient, downloader ports.ArchiveDownloader, runner ports.CommandRunner, cacheDir, hubTarget string, opts ...Option) *Fetcher {
	f := &Fetcher{
		hub:           hub,
		downloader:    downloader,
		runner:        runner,
		cacheDir:      cacheDir,
		hubTarget:     hubTarget,
		sources:       DefaultSources(),
		fedoraRelease: "rawhide",
		inFlight:      make(map[string]*inFlightFetch),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads a source archive for packageName (optionally a specific
// version), returning its local path. Concurrent fetches for the same key
// collapse into a single in-flight download.
func (f *Fetcher) Fetch(ctx context.Context, packageName, version string) (string, error) {
	key := cacheKey(packageName, version)

	if path, ok := f.cachedPath(key); ok {
		return path, nil
	}

	f.mu.Lock()
	if inFlight, ok := f.inFlight[key]; ok {
		f.mu.Unlock()
		<-inFlight.done
		return inFlight.path, inFlight.err
	}
	inFlight := &inFlightFetch{done: make(chan struct{})}
	f.inFlight[key] = inFlight
	f.mu.Unlock()

	path, err := f.doFetch(ctx, packageName, version, key)

	inFlight.path, inFlight.err = path, err
	close(inFlight.done)

	f.mu.Lock()
	delete(f.inFlight, key)
	f.mu.Unlock()

	return path, err
}

func (f *Fetcher) doFetch(ctx context.Context, packageName, version, key string) (string, error) {
	candidates := canon.CandidateSourceNames(packageName)

	var attempted []string
	for _, candidate := range candidates {
		for _, source := range f.sources {
			attempted = append(attempted, source.ID+":"+candidate)

			path, err := f.tryDownload(ctx, source, candidate, version, key)
			if err == nil {
				return path, nil
			}
			if f.logger != nil {
				f.logger.Debug(ctx, "archive source attempt failed",
					ports.F("source", source.ID), ports.F("candidate", candidate), ports.F("error", err.Error()))
			}
		}
	}

	return "", vberrors.NewArchiveNotFoundError(packageName, attempted)
}

// tryDownload attempts one (source, candidate) pair with the archive
// download retry policy: up to 2 attempts, linear backoff starting at 5s.
func (f *Fetcher) tryDownload(ctx context.Context, source Source, candidate, version, key string) (string, error) {
	var lastErr error
	backoff := 5 * time.Second
	for attempt := 1; attempt <= 2; attempt++ {
		var path string
		var err error
		if source.HubBacked {
			path, err = f.downloadFromHub(ctx, candidate, version)
		} else {
			path, err = f.downloadFromSpecSource(ctx, source, candidate)
		}
		if err == nil {
			cachedPath := f.destPath(key, filepath.Base(path))
			if path != cachedPath {
				if renameErr := os.Rename(path, cachedPath); renameErr == nil {
					path = cachedPath
				}
			}
			return path, nil
		}
		lastErr = err
		if attempt < 2 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", lastErr
}

// downloadFromHub resolves packageName (and optionally version) to an NVR
// already built and tagged on the hub, then downloads its source RPM.
// Unlike downloadFromSpecSource, it never builds anything itself: a
// hub-backed source can only serve packages the hub already has.
func (f *Fetcher) downloadFromHub(ctx context.Context, packageName, version string) (string, error) {
	var nvr string
	if version != "" {
		nvr = packageName + "-" + version
	} else {
		tagged, err := f.hub.ListTaggedBuilds(ctx, f.hubTarget)
		if err != nil {
			return "", err
		}
		resolved, ok := tagged[packageName]
		if !ok {
			return "", fmt.Errorf("fetch: no tagged build of %s on %s", packageName, f.hubTarget)
		}
		nvr = resolved
	}

	destDir := filepath.Join(f.cacheDir, "download-"+cacheKey(packageName, version))
	return f.hub.DownloadBuild(ctx, nvr, destDir)
}

func (f *Fetcher) downloadFromSpecSource(ctx context.Context, source Source, packageName string) (string, error) {
	if f.specs == nil {
		return "", fmt.Errorf("fetch: no spec source configured for %s", source.ID)
	}

	specContent, err := f.specs.FetchSpec(ctx, source.BaseURL, packageName, f.fedoraRelease)
	if err != nil {
		return "", err
	}

	workDir, err := os.MkdirTemp(f.cacheDir, "build-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(workDir)

	specPath := filepath.Join(workDir, packageName+".spec")
	if err := os.WriteFile(specPath, []byte(specContent), 0o644); err != nil {
		return "", err
	}

	sourcesDir := filepath.Join(workDir, "SOURCES")
	if err := os.MkdirAll(sourcesDir, 0o755); err != nil {
		return "", err
	}

	for _, url := range extractSourceURLs(specContent) {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			continue
		}
		dest := filepath.Join(sourcesDir, filepath.Base(url))
		if err := f.downloader.Download(ctx, url, dest); err != nil && f.logger != nil {
			f.logger.Warn(ctx, "failed to download declared source", ports.F("url", url), ports.F("error", err.Error()))
		}
	}

	res, err := f.runner.Run(ctx, "rpmbuild", "-bs",
		"--define", "_topdir "+workDir,
		"--define", "_sourcedir "+sourcesDir,
		"--define", "_srcrpmdir "+workDir,
		specPath)
	if err != nil || !res.Success() {
		return "", fmt.Errorf("fetch: rpmbuild -bs failed for %s: %v", packageName, err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "*.src.rpm"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("fetch: no source archive produced for %s", packageName)
	}
	return matches[0], nil
}

func extractSourceURLs(specContent string) []string {
	var urls []string
	for _, line := range strings.Split(specContent, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "source") && strings.Contains(trimmed, ":") {
			parts := strings.SplitN(trimmed, ":", 2)
			urls = append(urls, strings.TrimSpace(parts[1]))
		}
	}
	return urls
}

func (f *Fetcher) cachedPath(key string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(f.cacheDir, key+"*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	if _, err := os.Stat(matches[0]); err != nil {
		return "", false
	}
	return matches[0], true
}

func (f *Fetcher) destPath(key, filename string) string {
	ext := filepath.Ext(filename)
	if strings.HasSuffix(filename, ".src.rpm") || ext == "" {
		ext = ".src.rpm"
	}
	return filepath.Join(f.cacheDir, key+ext)
}

func cacheKey(packageName, version string) string {
	if version == "" {
		version = "latest"
	}
	sum := blake2b.Sum256([]byte(packageName + "-" + version))
	return packageName + "-" + hex.EncodeToString(sum[:])[:8]
}
