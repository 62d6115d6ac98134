package ports

import "context"

// TaskStatus is the lifecycle state of a hub build task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "PENDING"
	TaskBuilding TaskStatus = "BUILDING"
	TaskComplete TaskStatus = "COMPLETE"
	TaskFailed   TaskStatus = "FAILED"
	TaskCanceled TaskStatus = "CANCELED"
)

// Terminal reports whether the status is one the build orchestrator will
// never see transition further.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskComplete, TaskFailed, TaskCanceled:
		return true
	default:
		return false
	}
}

// BuildFlags controls how a submission is made.
type BuildFlags struct {
	Scratch bool
	NoWait  bool
}

// HubClient is a thin, synchronous adapter over the build hub's
// command-line tool.
type HubClient interface {
	// ListPackages returns the names of packages present in tag. Results
	// are memoized per tag for the process lifetime by the implementation.
	ListPackages(ctx context.Context, tag string) ([]string, error)

	// Exists is equivalent to name being a member of ListPackages(tag).
	Exists(ctx context.Context, name, tag string) (bool, error)

	// ListTaggedBuilds returns a mapping from package name to NVR.
	ListTaggedBuilds(ctx context.Context, tag string) (map[string]string, error)

	// SubmitBuild submits archivePath against target and returns the hub's
	// opaque task id.
	SubmitBuild(ctx context.Context, target, archivePath string, flags BuildFlags) (int, error)

	// DownloadBuild fetches the source RPM of an already-built NVR into
	// destDir (`download-build --arch=src`) and returns the local path to
	// the downloaded *.src.rpm.
	DownloadBuild(ctx context.Context, nvr, destDir string) (string, error)

	// Status returns the current state of taskID.
	Status(ctx context.Context, taskID int) (TaskStatus, error)

	// Cancel attempts to cancel taskID, returning whether it succeeded.
	Cancel(ctx context.Context, taskID int) (bool, error)

	// WaitForRepo blocks until tag's repository has regenerated to include
	// the most recent build, or the deadline elapses.
	WaitForRepo(ctx context.Context, tag string, timeoutSeconds int) (bool, error)

	// InvalidateListCache clears the memoized ListPackages results.
	InvalidateListCache()
}

// ArchiveDownloader retrieves a file from a URL to a local destination.
type ArchiveDownloader interface {
	Download(ctx context.Context, url, destPath string) error
}
