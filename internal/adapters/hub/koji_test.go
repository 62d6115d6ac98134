package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssokkol/koji-vibebuild/internal/ports"
	"github.com/ssokkol/koji-vibebuild/internal/testutil/mocks"
)

const server = "https://koji.example.com/kojihub"

func TestClient_ListPackages_MemoizesPerTag(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "list-pkgs", "--tag=dist-rawhide", "--quiet"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "gcc\nmake\nglibc\n",
	})

	c := NewClient(runner, server)
	pkgs, err := c.ListPackages(context.Background(), "dist-rawhide")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "make", "glibc"}, pkgs)

	// Second call must not re-invoke the runner; clearing the mock's result
	// would otherwise surface as an error.
	runner.Reset()
	pkgs2, err := c.ListPackages(context.Background(), "dist-rawhide")
	require.NoError(t, err)
	assert.Equal(t, pkgs, pkgs2)
}

func TestClient_Exists(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "list-pkgs", "--tag=dist-rawhide", "--quiet"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "gcc\nmake\n",
	})

	c := NewClient(runner, server)
	ok, err := c.Exists(context.Background(), "make", "dist-rawhide")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "missing", "dist-rawhide")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SubmitBuild_ParsesTaskID(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "build", "dist-rawhide", "foo.src.rpm"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "Uploading srpm... done\nCreated task: 4242\n",
	})

	c := NewClient(runner, server)
	id, err := c.SubmitBuild(context.Background(), "dist-rawhide", "foo.src.rpm", ports.BuildFlags{})
	require.NoError(t, err)
	assert.Equal(t, 4242, id)
}

func TestClient_SubmitBuild_ScratchAndNoWaitFlags(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "build", "--scratch", "--nowait", "dist-rawhide", "foo.src.rpm"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "Created task: 7\n",
	})

	c := NewClient(runner, server)
	id, err := c.SubmitBuild(context.Background(), "dist-rawhide", "foo.src.rpm", ports.BuildFlags{Scratch: true, NoWait: true})
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestClient_Status_MapsCompleteFailedCanceled(t *testing.T) {
	t.Parallel()

	cases := map[string]ports.TaskStatus{
		"State: closed\n":   ports.TaskComplete,
		"State: FAILED\n":   ports.TaskFailed,
		"State: canceled\n": ports.TaskCanceled,
		"State: open\n":     ports.TaskBuilding,
	}

	for stdout, want := range cases {
		runner := mocks.NewCommandRunner()
		runner.AddResult("koji", []string{"--server=" + server, "taskinfo", "99"}, ports.CommandResult{ExitCode: 0, Stdout: stdout})
		c := NewClient(runner, server)

		status, err := c.Status(context.Background(), 99)
		require.NoError(t, err)
		assert.Equal(t, want, status, "stdout=%q", stdout)
	}
}

func TestClient_Cancel(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "cancel", "5"}, ports.CommandResult{ExitCode: 0})

	c := NewClient(runner, server)
	ok, err := c.Cancel(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_WaitForRepo(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "wait-repo", "dist-rawhide", "--timeout=1800"}, ports.CommandResult{ExitCode: 0})

	c := NewClient(runner, server)
	ok, err := c.WaitForRepo(context.Background(), "dist-rawhide", 1800)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_InvalidateListCache_ForcesRefetch(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("koji", []string{"--server=" + server, "list-pkgs", "--tag=dist-rawhide", "--quiet"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "gcc\n",
	})

	c := NewClient(runner, server)
	_, err := c.ListPackages(context.Background(), "dist-rawhide")
	require.NoError(t, err)

	c.InvalidateListCache()

	runner.AddResult("koji", []string{"--server=" + server, "list-pkgs", "--tag=dist-rawhide", "--quiet"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "gcc\nmake\n",
	})
	pkgs, err := c.ListPackages(context.Background(), "dist-rawhide")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "make"}, pkgs)
}
