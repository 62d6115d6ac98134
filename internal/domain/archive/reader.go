// Package archive reads build metadata out of RPM source-package archives
// by shelling out to the host's rpm toolchain.
package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssokkol/koji-vibebuild/internal/domain/specfile"
	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
)

// Reader queries and unpacks SRPM archives via the host rpm/cpio tools.
type Reader struct {
	runner   ports.CommandRunner
	analyzer *specfile.SpecAnalyzer
}

// NewReader creates a Reader.
func NewReader(runner ports.CommandRunner) *Reader {
	return &Reader{runner: runner, analyzer: specfile.NewSpecAnalyzer()}
}

// Requires returns the build-time requirement tokens recorded in the
// archive header, via `rpm -qp --requires`. rpmlib() pseudo-requires and
// file-path requires are filtered out, and any trailing version constraint
// is stripped — the caller re-derives structured constraints from the spec
// itself when it needs them.
func (r *Reader) Requires(ctx context.Context, archivePath string) ([]string, error) {
	if err := validateSRPMName(archivePath); err != nil {
		return nil, err
	}

	res, err := r.runner.Run(ctx, "rpm", "-qp", "--requires", archivePath)
	if err != nil {
		return nil, vberrors.NewInvalidArchiveError(archivePath, err)
	}
	if !res.Success() {
		return nil, vberrors.NewInvalidArchiveError(archivePath, nil).WithContext(res.Stderr)
	}

	seen := make(map[string]bool)
	var requires []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, op := range specfile.VersionOperators {
			if idx := strings.Index(line, op); idx >= 0 {
				line = strings.TrimSpace(line[:idx])
				break
			}
		}
		if strings.HasPrefix(line, "rpmlib(") || strings.HasPrefix(line, "/") {
			continue
		}
		if line != "" && !seen[line] {
			seen[line] = true
			requires = append(requires, line)
		}
	}
	return requires, nil
}

// Info unpacks archivePath into a scratch directory, locates the single
// .spec file, and delegates to SpecAnalyzer. The scratch directory is
// guaranteed released on every exit path.
func (r *Reader) Info(ctx context.Context, archivePath string) (specfile.PackageInfo, error) {
	if err := validateSRPMName(archivePath); err != nil {
		return specfile.PackageInfo{}, err
	}

	tmpDir, err := os.MkdirTemp("", "vibebuild-srpm-*")
	if err != nil {
		return specfile.PackageInfo{}, vberrors.NewInvalidArchiveError(archivePath, err)
	}
	defer os.RemoveAll(tmpDir)

	res, err := r.runner.Run(ctx, "sh", "-c",
		"cd "+shellQuote(tmpDir)+" && rpm2cpio "+shellQuote(archivePath)+" | cpio -idmv")
	if err != nil {
		return specfile.PackageInfo{}, vberrors.NewInvalidArchiveError(archivePath, err)
	}
	_ = res // rpm2cpio/cpio diagnostics land on stderr; a missing .spec below is the authoritative failure signal

	matches, err := filepath.Glob(filepath.Join(tmpDir, "*.spec"))
	if err != nil || len(matches) == 0 {
		return specfile.PackageInfo{}, vberrors.NewInvalidArchiveError(archivePath, err).WithContext("no .spec file found after unpack")
	}

	content, err := os.ReadFile(matches[0])
	if err != nil {
		return specfile.PackageInfo{}, vberrors.NewInvalidArchiveError(archivePath, err)
	}

	info, _, err := r.analyzer.Analyze(string(content))
	if err != nil {
		return specfile.PackageInfo{}, err
	}
	return info, nil
}

func validateSRPMName(path string) error {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".rpm") || !strings.Contains(base, ".src.") {
		return vberrors.NewInvalidArchiveError(path, nil).WithSuggestion("expected a *.src.rpm file")
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
