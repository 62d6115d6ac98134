package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssokkol/koji-vibebuild/internal/adapters/command"
	"github.com/ssokkol/koji-vibebuild/internal/testutil/mocks"
)

func TestFetcher_HubBackedSourceProducesArchive(t *testing.T) {
	t.Parallel()

	hubClient := mocks.NewHubClient()
	hubClient.SetTaggedBuilds("dist-rawhide", map[string]string{"foo": "foo-1.0-1.fc40"})
	hubClient.SetDownloadContent("foo-1.0-1.fc40", []byte("fake source rpm payload"))
	downloader := mocks.NewArchiveDownloader()
	cacheDir := t.TempDir()

	f := New(hubClient, downloader, command.NewRealRunner(), cacheDir, "dist-rawhide",
		WithSources([]Source{{ID: "hub", Priority: 10, HubBacked: true}}))

	path, err := f.Fetch(context.Background(), "foo", "")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake source rpm payload", string(content))

	calls := hubClient.DownloadCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "foo-1.0-1.fc40", calls[0].NVR)
}

func TestFetcher_CachesSecondFetch(t *testing.T) {
	t.Parallel()

	hubClient := mocks.NewHubClient()
	hubClient.SetTaggedBuilds("dist-rawhide", map[string]string{"foo": "foo-1.0-1.fc40"})
	hubClient.SetDownloadContent("foo-1.0-1.fc40", []byte("fake source rpm payload"))
	downloader := mocks.NewArchiveDownloader()
	cacheDir := t.TempDir()

	f := New(hubClient, downloader, command.NewRealRunner(), cacheDir, "dist-rawhide",
		WithSources([]Source{{ID: "hub", Priority: 10, HubBacked: true}}))

	first, err := f.Fetch(context.Background(), "foo", "")
	require.NoError(t, err)

	second, err := f.Fetch(context.Background(), "foo", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Cached path means only the first fetch talked to the hub.
	assert.Len(t, hubClient.DownloadCalls(), 1)
}

func TestFetcher_AllSourcesFailReturnsArchiveNotFound(t *testing.T) {
	t.Parallel()

	hubClient := mocks.NewHubClient()
	// No tagged build registered for "foo": downloadFromHub cannot resolve
	// an NVR and every source attempt fails.
	downloader := mocks.NewArchiveDownloader()
	cacheDir := t.TempDir()

	f := New(hubClient, downloader, command.NewRealRunner(), cacheDir, "dist-rawhide",
		WithSources([]Source{{ID: "hub", Priority: 10, HubBacked: true}}))

	_, err := f.Fetch(context.Background(), "foo", "")
	require.Error(t, err)
}

func TestCacheKey_StableForSameInputs(t *testing.T) {
	t.Parallel()

	a := cacheKey("foo", "1.0")
	b := cacheKey("foo", "1.0")
	c := cacheKey("foo", "2.0")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestExtractSourceURLs(t *testing.T) {
	t.Parallel()

	spec := "Name: foo\nSource0: https://example.org/foo-1.0.tar.gz\nSource1: https://example.org/patch.tar.gz\n"
	urls := extractSourceURLs(spec)
	require.Len(t, urls, 2)
	assert.Equal(t, "https://example.org/foo-1.0.tar.gz", urls[0])
}

func TestFetcher_DestPath(t *testing.T) {
	t.Parallel()

	f := New(mocks.NewHubClient(), mocks.NewArchiveDownloader(), command.NewRealRunner(), t.TempDir(), "dist-rawhide")
	path := f.destPath("key123", "archive.src.rpm")
	assert.Equal(t, filepath.Join(f.cacheDir, "key123.src.rpm"), path)
}
