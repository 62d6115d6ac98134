package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssokkol/koji-vibebuild/internal/adapters/logging"
	"github.com/ssokkol/koji-vibebuild/internal/domain/archive"
	"github.com/ssokkol/koji-vibebuild/internal/domain/graph"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
	"github.com/ssokkol/koji-vibebuild/internal/testutil/mocks"
)

type identityCanon struct{}

func (identityCanon) Canonicalize(token string) string { return token }

func writeSRPM(t *testing.T, dir, name, deps string) string {
	t.Helper()
	path := filepath.Join(dir, name+".src.rpm")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
	return path
}

var unpackPattern = regexp.MustCompile(`cd '([^']*)' && rpm2cpio '([^']*)'`)

// stubRunner satisfies ports.CommandRunner well enough for archive.Reader's
// Requires() and Info() paths: it never shells out for real, instead
// recognizing the exact commands Reader issues and faking their effect
// (writing a minimal .spec file where Info()'s unpack step would have).
type stubRunner struct {
	requiresOutput map[string]string
}

func (s stubRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	if command == "rpm" && len(args) >= 3 {
		archivePath := args[len(args)-1]
		return ports.CommandResult{ExitCode: 0, Stdout: s.requiresOutput[archivePath]}, nil
	}
	if command == "sh" && len(args) == 2 && args[0] == "-c" {
		m := unpackPattern.FindStringSubmatch(args[1])
		if m != nil {
			dir, archivePath := m[1], m[2]
			name := strings.TrimSuffix(filepath.Base(archivePath), ".src.rpm")
			spec := "Name: " + name + "\nVersion: 1.0\nRelease: 1%{?dist}\n"
			if err := os.WriteFile(filepath.Join(dir, name+".spec"), []byte(spec), 0o644); err != nil {
				return ports.CommandResult{}, err
			}
		}
		return ports.CommandResult{ExitCode: 0}, nil
	}
	return ports.CommandResult{ExitCode: 0}, nil
}

func TestOrchestrator_BuildLevel_AllSucceed(t *testing.T) {
	t.Parallel()

	hubClient := mocks.NewHubClient()
	dir := t.TempDir()
	reader := archive.NewReader(stubRunner{})
	resolver := graph.NewResolver(reader, identityCanon{}, mocks.NewHubClient(), "dist-rawhide")

	o := New(hubClient, reader, resolver, logging.NewNopLogger(), Config{
		HubBuildTag:         "dist-rawhide",
		HubTarget:           "dist-rawhide",
		MaxParallelPerLevel: 2,
	})

	g := graph.DependencyGraph{
		"liba": {Name: "liba", ArchivePath: writeSRPM(t, dir, "liba", ""), Dependencies: map[string]struct{}{}},
		"libb": {Name: "libb", ArchivePath: writeSRPM(t, dir, "libb", ""), Dependencies: map[string]struct{}{}},
	}

	result, err := o.buildLevel(context.Background(), g, []string{"liba", "libb"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"liba", "libb"}, result.BuiltPackages)
	assert.Empty(t, result.FailedPackages)
}

func TestOrchestrator_BuildLevel_FailureCancelsSiblings(t *testing.T) {
	t.Parallel()

	hubClient := mocks.NewHubClient()
	dir := t.TempDir()
	failPath := writeSRPM(t, dir, "failing", "")
	slowPath := writeSRPM(t, dir, "slow", "")
	hubClient.SetSubmitError(failPath, assertErr{})
	// "failing" never reaches SubmitBuild's success path, so "slow" is the
	// only successful submission in this level and always gets task id 1.
	hubClient.SetTaskStatus(1, ports.TaskBuilding)

	reader := archive.NewReader(stubRunner{})
	resolver := graph.NewResolver(reader, identityCanon{}, mocks.NewHubClient(), "dist-rawhide")

	o := New(hubClient, reader, resolver, logging.NewNopLogger(), Config{
		HubBuildTag:         "dist-rawhide",
		HubTarget:           "dist-rawhide",
		MaxParallelPerLevel: 2,
		PollInterval:        10 * time.Millisecond,
	})

	g := graph.DependencyGraph{
		"failing": {Name: "failing", ArchivePath: failPath, Dependencies: map[string]struct{}{}},
		"slow":    {Name: "slow", ArchivePath: slowPath, Dependencies: map[string]struct{}{}},
	}

	result, err := o.buildLevel(context.Background(), g, []string{"failing", "slow"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"failing", "slow"}, result.FailedPackages)

	var slowTask *BuildTask
	for i := range result.Tasks {
		if result.Tasks[i].PackageName == "slow" {
			slowTask = &result.Tasks[i]
		}
	}
	require.NotNil(t, slowTask)
	assert.Equal(t, ports.TaskCanceled, slowTask.Status)
	assert.Contains(t, hubClient.CancelCalls(), slowTask.TaskID)
}

type assertErr struct{}

func (assertErr) Error() string { return "submit failed" }

func TestOrchestrator_BuildSingle(t *testing.T) {
	t.Parallel()

	hubClient := mocks.NewHubClient()
	dir := t.TempDir()
	path := writeSRPM(t, dir, "solo", "")

	reader := archive.NewReader(stubRunner{})
	resolver := graph.NewResolver(reader, identityCanon{}, mocks.NewHubClient(), "dist-rawhide")

	o := New(hubClient, reader, resolver, logging.NewNopLogger(), Config{
		HubBuildTag: "dist-rawhide",
		HubTarget:   "dist-rawhide",
	})

	result, err := o.BuildSingle(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"solo"}, result.BuiltPackages)
}

func TestDropRoot(t *testing.T) {
	t.Parallel()

	chain := [][]string{{"liba", "root"}, {"root"}}
	got := dropRoot(chain, "root")
	assert.Equal(t, [][]string{{"liba"}}, got)
}
