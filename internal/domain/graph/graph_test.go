package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssokkol/koji-vibebuild/internal/domain/specfile"
)

type stubReader struct {
	requires map[string][]string // archivePath -> tokens
}

func (s stubReader) Requires(_ context.Context, archivePath string) ([]string, error) {
	return s.requires[archivePath], nil
}

type identityCanon struct{}

func (identityCanon) Canonicalize(token string) string { return token }

type stubHub struct {
	available map[string]bool
	tagged    map[string]string
}

func (s stubHub) Exists(_ context.Context, name, _ string) (bool, error) {
	return s.available[name], nil
}

func (s stubHub) ListTaggedBuilds(_ context.Context, _ string) (map[string]string, error) {
	return s.tagged, nil
}

func TestCheckVersionConstraints_FlagsUnsatisfied(t *testing.T) {
	t.Parallel()

	hub := stubHub{tagged: map[string]string{"gcc": "gcc-8.5-1.fc40"}}
	resolver := NewResolver(stubReader{}, identityCanon{}, hub, "dist-rawhide")

	info := specfile.PackageInfo{
		Name: "foo",
		BuildRequires: []specfile.BuildRequirement{
			{Name: "gcc", Operator: ">=", Version: "9.0"},
			{Name: "make"},
		},
	}

	unsatisfied, err := resolver.CheckVersionConstraints(context.Background(), info, "dist-rawhide")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc"}, unsatisfied)
}

func TestCheckVersionConstraints_NoVersionedRequirementsSkipsHubLookup(t *testing.T) {
	t.Parallel()

	hub := stubHub{}
	resolver := NewResolver(stubReader{}, identityCanon{}, hub, "dist-rawhide")

	info := specfile.PackageInfo{Name: "foo", BuildRequires: []specfile.BuildRequirement{{Name: "make"}}}

	unsatisfied, err := resolver.CheckVersionConstraints(context.Background(), info, "dist-rawhide")
	require.NoError(t, err)
	assert.Empty(t, unsatisfied)
}

func fakeResolve(archives map[string]string) ArchiveResolverFunc {
	return func(_ context.Context, name string) (string, error) {
		return archives[name], nil
	}
}

func TestBuildGraph_SimpleChain(t *testing.T) {
	t.Parallel()

	reader := stubReader{requires: map[string][]string{
		"root.src.rpm": {"liba"},
		"liba.src.rpm": {"libb"},
		"libb.src.rpm": {},
	}}
	hub := stubHub{available: map[string]bool{}}
	resolver := NewResolver(reader, identityCanon{}, hub, "dist-rawhide")

	archives := map[string]string{"liba": "liba.src.rpm", "libb": "libb.src.rpm"}
	g, err := resolver.BuildGraph(context.Background(), "root", "root.src.rpm", fakeResolve(archives))
	require.NoError(t, err)

	require.Contains(t, g, "root")
	require.Contains(t, g, "liba")
	require.Contains(t, g, "libb")
	assert.False(t, g["liba"].IsAvailable)

	order, err := TopologicalSort(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"libb", "liba", "root"}, order)

	AssignBuildOrder(g, order)
	assert.Equal(t, 0, g["libb"].BuildOrder)
	assert.Equal(t, 1, g["liba"].BuildOrder)
	assert.Equal(t, 2, g["root"].BuildOrder)

	chain := BuildChain(g, order)
	require.Len(t, chain, 3)
	assert.Equal(t, []string{"libb"}, chain[0])
	assert.Equal(t, []string{"liba"}, chain[1])
	assert.Equal(t, []string{"root"}, chain[2])
}

func TestBuildGraph_AvailableDependencySkipped(t *testing.T) {
	t.Parallel()

	reader := stubReader{requires: map[string][]string{
		"root.src.rpm": {"already-built"},
	}}
	hub := stubHub{available: map[string]bool{"already-built": true}}
	resolver := NewResolver(reader, identityCanon{}, hub, "dist-rawhide")

	g, err := resolver.BuildGraph(context.Background(), "root", "root.src.rpm", fakeResolve(nil))
	require.NoError(t, err)

	require.Contains(t, g, "already-built")
	assert.True(t, g["already-built"].IsAvailable)

	order, err := TopologicalSort(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"root"}, order)
}

func TestBuildGraph_RootWithNoDependencies(t *testing.T) {
	t.Parallel()

	reader := stubReader{requires: map[string][]string{"root.src.rpm": {}}}
	hub := stubHub{available: map[string]bool{}}
	resolver := NewResolver(reader, identityCanon{}, hub, "dist-rawhide")

	g, err := resolver.BuildGraph(context.Background(), "root", "root.src.rpm", fakeResolve(nil))
	require.NoError(t, err)

	order, err := TopologicalSort(g)
	require.NoError(t, err)
	AssignBuildOrder(g, order)
	chain := BuildChain(g, order)
	assert.Equal(t, [][]string{{"root"}}, chain)
}

func TestTopologicalSort_DetectsCycle(t *testing.T) {
	t.Parallel()

	g := DependencyGraph{
		"a": {Name: "a", Dependencies: map[string]struct{}{"b": {}}},
		"b": {Name: "b", Dependencies: map[string]struct{}{"a": {}}},
	}

	_, err := TopologicalSort(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestTopologicalSort_LexicographicTieBreak(t *testing.T) {
	t.Parallel()

	g := DependencyGraph{
		"zeta":  {Name: "zeta", Dependencies: map[string]struct{}{}},
		"alpha": {Name: "alpha", Dependencies: map[string]struct{}{}},
		"mu":    {Name: "mu", Dependencies: map[string]struct{}{}},
	}

	order, err := TopologicalSort(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, order)
}
