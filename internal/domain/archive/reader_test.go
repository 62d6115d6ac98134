package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
	"github.com/ssokkol/koji-vibebuild/internal/testutil/mocks"
)

func TestReader_Requires_FiltersRpmlibAndPaths(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("rpm", []string{"-qp", "--requires", "foo-1.0-1.src.rpm"}, ports.CommandResult{
		ExitCode: 0,
		Stdout: "rpmlib(CompressedFileNames) <= 3.0.4-1\n" +
			"/bin/sh\n" +
			"gcc >= 4.8\n" +
			"make\n" +
			"make\n",
	})

	r := NewReader(runner)
	requires, err := r.Requires(context.Background(), "foo-1.0-1.src.rpm")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "make"}, requires)
}

func TestReader_Requires_RejectsNonSRPM(t *testing.T) {
	t.Parallel()

	r := NewReader(mocks.NewCommandRunner())
	_, err := r.Requires(context.Background(), "not-an-rpm.txt")
	require.Error(t, err)
	var invalidErr *vberrors.InvalidArchiveError
	require.ErrorAs(t, err, &invalidErr)
}

func TestReader_Requires_PropagatesRunnerError(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddError("rpm", []string{"-qp", "--requires", "foo-1.0-1.src.rpm"}, errors.New("rpm: command not found"))

	r := NewReader(runner)
	_, err := r.Requires(context.Background(), "foo-1.0-1.src.rpm")
	require.Error(t, err)
	var invalidErr *vberrors.InvalidArchiveError
	require.ErrorAs(t, err, &invalidErr)
}

func TestReader_Info_RejectsNonSRPM(t *testing.T) {
	t.Parallel()

	r := NewReader(mocks.NewCommandRunner())
	_, err := r.Info(context.Background(), "plain.rpm")
	require.Error(t, err)
	var invalidErr *vberrors.InvalidArchiveError
	require.ErrorAs(t, err, &invalidErr)
}
