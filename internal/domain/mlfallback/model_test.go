package mlfallback

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedResolver(t *testing.T, cachePath string) *Resolver {
	t.Helper()
	r := New("", cachePath)
	err := r.Train([]Example{
		{Provide: "libfoo.so.2()(64bit)", RPMName: "libfoo", SRPMName: "libfoo-src"},
		{Provide: "libbar.so.1()(64bit)", RPMName: "libbar", SRPMName: "libbar-src"},
		{Provide: "python3.12dist(flask)", RPMName: "python3-flask", SRPMName: "python-flask"},
	})
	require.NoError(t, err)
	return r
}

func TestResolver_PredictNearestMatch(t *testing.T) {
	t.Parallel()
	cache := filepath.Join(t.TempDir(), "cache.json")
	r := trainedResolver(t, cache)

	bin, src, distance, ok := r.Predict("libfoo.so.2()(64bit)")
	require.True(t, ok)
	assert.Equal(t, "libfoo", bin)
	assert.Equal(t, "libfoo-src", src)
	assert.Less(t, distance, 0.01)
}

func TestResolver_PredictBeyondThreshold(t *testing.T) {
	t.Parallel()
	cache := filepath.Join(t.TempDir(), "cache.json")
	r := trainedResolver(t, cache)

	_, _, _, ok := r.Predict("completely-unrelated-token-xyz")
	assert.False(t, ok)
}

func TestResolver_UnavailableBeforeTraining(t *testing.T) {
	t.Parallel()
	cache := filepath.Join(t.TempDir(), "cache.json")
	r := New("", cache)
	assert.False(t, r.Available())

	_, _, _, ok := r.Predict("anything")
	assert.False(t, ok)
}

func TestResolver_SaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cache := filepath.Join(dir, "cache.json")
	modelPath := filepath.Join(dir, "model.gob")

	r := trainedResolver(t, cache)
	require.NoError(t, r.Save(modelPath))

	loaded := New(modelPath, filepath.Join(dir, "cache2.json"))
	require.True(t, loaded.Available())

	bin, _, _, ok := loaded.Predict("libfoo.so.2()(64bit)")
	require.True(t, ok)
	assert.Equal(t, "libfoo", bin)
}

func TestResolver_LoadMissingFileStaysUnavailable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r := New(filepath.Join(dir, "does-not-exist.gob"), filepath.Join(dir, "cache.json"))
	assert.False(t, r.Available())
}

func TestResolver_TrainRejectsEmpty(t *testing.T) {
	t.Parallel()
	r := New("", filepath.Join(t.TempDir(), "cache.json"))
	err := r.Train(nil)
	assert.Error(t, err)
}
