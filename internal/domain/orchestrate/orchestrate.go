// Package orchestrate drives a leveled dependency build plan to completion
// against the build hub: submitting each level's archives with bounded
// concurrency, polling task status, waiting for repository regeneration
// between levels, and finally building the root.
package orchestrate

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ssokkol/koji-vibebuild/internal/domain/archive"
	"github.com/ssokkol/koji-vibebuild/internal/domain/graph"
	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
)

// BuildTask tracks one submission through its lifecycle.
type BuildTask struct {
	PackageName  string
	ArchivePath  string
	Target       string
	TaskID       int
	Status       ports.TaskStatus
	ErrorMessage string
	NVR          string
}

// BuildResult is the outcome of a build run.
type BuildResult struct {
	Success        bool
	Tasks          []BuildTask
	BuiltPackages  []string
	FailedPackages []string
	TotalSeconds   float64
}

// Config parameterizes a build run.
type Config struct {
	HubBuildTag         string
	HubTarget           string
	MaxParallelPerLevel int
	WaitForRepoTimeout  int // seconds; defaults to 1800
	Scratch             bool
	NoWait              bool
	PollInterval        time.Duration // defaults to 5s
}

// Orchestrator drives builds through a ports.HubClient.
type Orchestrator struct {
	hub      ports.HubClient
	reader   *archive.Reader
	resolver *graph.Resolver
	logger   ports.Logger
	cfg      Config
	now      func() time.Time
}

// New creates an Orchestrator.
func New(hub ports.HubClient, reader *archive.Reader, resolver *graph.Resolver, logger ports.Logger, cfg Config) *Orchestrator {
	if cfg.MaxParallelPerLevel < 1 {
		cfg.MaxParallelPerLevel = 1
	}
	if cfg.WaitForRepoTimeout <= 0 {
		cfg.WaitForRepoTimeout = 1800
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Orchestrator{hub: hub, reader: reader, resolver: resolver, logger: logger, cfg: cfg, now: time.Now}
}

// BuildWithDeps builds archivePath and every unresolved build-time
// dependency, level by level.
func (o *Orchestrator) BuildWithDeps(ctx context.Context, rootArchivePath string, resolveArchive graph.ArchiveResolverFunc) (BuildResult, error) {
	start := o.now()

	rootInfo, err := o.reader.Info(ctx, rootArchivePath)
	if err != nil {
		return BuildResult{}, err
	}

	if unsatisfied, err := o.resolver.CheckVersionConstraints(ctx, rootInfo, o.cfg.HubBuildTag); err != nil {
		o.logger.Warn(ctx, "version constraint check failed", ports.F("error", err.Error()))
	} else if len(unsatisfied) > 0 {
		o.logger.Warn(ctx, "hub-tagged builds do not satisfy declared version constraints",
			ports.F("packages", strings.Join(unsatisfied, ",")))
	}

	g, err := o.resolver.BuildGraph(ctx, rootInfo.Name, rootArchivePath, resolveArchive)
	if err != nil {
		return BuildResult{}, err
	}

	order, err := graph.TopologicalSort(g)
	if err != nil {
		return BuildResult{}, err
	}
	graph.AssignBuildOrder(g, order)
	chain := graph.BuildChain(g, order)

	// The root is not part of the dependency chain itself; drop its own
	// level if it appears there (it is built on its own after every
	// dependency level has completed).
	chain = dropRoot(chain, rootInfo.Name)

	result := BuildResult{Success: true}

	for _, level := range chain {
		levelResult, err := o.buildLevel(ctx, g, level)
		result.Tasks = append(result.Tasks, levelResult.Tasks...)
		result.BuiltPackages = append(result.BuiltPackages, levelResult.BuiltPackages...)
		result.FailedPackages = append(result.FailedPackages, levelResult.FailedPackages...)

		if err != nil || len(levelResult.FailedPackages) > 0 {
			result.Success = false
			result.TotalSeconds = o.now().Sub(start).Seconds()
			return result, nil
		}

		if _, err := o.hub.WaitForRepo(ctx, o.cfg.HubBuildTag, o.cfg.WaitForRepoTimeout); err != nil {
			o.logger.Warn(ctx, "wait-repo failed", ports.F("error", err.Error()))
		}
	}

	rootTask, err := o.submitAndPoll(ctx, rootInfo.Name, rootArchivePath, nil)
	result.Tasks = append(result.Tasks, rootTask)
	if err != nil || rootTask.Status != ports.TaskComplete {
		result.Success = false
		result.FailedPackages = append(result.FailedPackages, rootInfo.Name)
	} else {
		result.BuiltPackages = append(result.BuiltPackages, rootInfo.Name)
	}

	result.TotalSeconds = o.now().Sub(start).Seconds()
	return result, nil
}

func dropRoot(chain [][]string, rootName string) [][]string {
	var out [][]string
	for _, level := range chain {
		var filtered []string
		for _, name := range level {
			if name != rootName {
				filtered = append(filtered, name)
			}
		}
		if len(filtered) > 0 {
			out = append(out, filtered)
		}
	}
	return out
}

// buildLevel submits every node in level with bounded concurrency, polling
// each to a terminal state. If any node fails, it best-effort cancels
// still-running siblings before returning.
func (o *Orchestrator) buildLevel(ctx context.Context, g graph.DependencyGraph, level []string) (BuildResult, error) {
	tasks := make([]*BuildTask, len(level))
	sort.Strings(level)

	// A plain errgroup.Group, not errgroup.WithContext: siblings must keep
	// polling on the caller's own ctx even after one of them fails. Early
	// termination of still-running siblings is instead driven by abortCh,
	// so a failure explicitly cancels its siblings on the hub (TaskCanceled)
	// from within the level, and the caller's ctx is reserved for the
	// caller's own cancellation.
	var grp errgroup.Group
	grp.SetLimit(o.cfg.MaxParallelPerLevel)

	abortCh := make(chan struct{})
	var abortOnce sync.Once

	var mu sync.Mutex
	var firstFailure string

	for i, name := range level {
		i, name := i, name
		grp.Go(func() error {
			node := g[name]
			task, err := o.submitAndPoll(ctx, name, node.ArchivePath, abortCh)

			mu.Lock()
			tasks[i] = &task
			failed := task.Status != ports.TaskComplete
			if failed && firstFailure == "" {
				firstFailure = name
			}
			mu.Unlock()

			if failed {
				abortOnce.Do(func() { close(abortCh) })
			}
			return err
		})
	}
	_ = grp.Wait()

	if firstFailure != "" {
		o.cancelRunning(ctx, tasks)
	}

	var result BuildResult
	for _, t := range tasks {
		if t == nil {
			continue
		}
		result.Tasks = append(result.Tasks, *t)
		if t.Status == ports.TaskComplete {
			result.BuiltPackages = append(result.BuiltPackages, t.PackageName)
		} else {
			result.FailedPackages = append(result.FailedPackages, t.PackageName)
		}
	}
	return result, nil
}

func (o *Orchestrator) cancelRunning(ctx context.Context, tasks []*BuildTask) {
	for _, t := range tasks {
		if t == nil || t.Status.Terminal() {
			continue
		}
		if ok, _ := o.hub.Cancel(ctx, t.TaskID); ok {
			t.Status = ports.TaskCanceled
		}
	}
}

// submitAndPoll submits archivePath and polls status until it reaches a
// terminal state. abort, when non-nil, is a level-wide signal closed by a
// failing sibling; receiving on it triggers an explicit hub cancel rather
// than letting the task run to its own completion or failure.
func (o *Orchestrator) submitAndPoll(ctx context.Context, packageName, archivePath string, abort <-chan struct{}) (BuildTask, error) {
	task := BuildTask{PackageName: packageName, ArchivePath: archivePath, Target: o.cfg.HubTarget, Status: ports.TaskPending}

	taskID, err := o.hub.SubmitBuild(ctx, o.cfg.HubTarget, archivePath, ports.BuildFlags{Scratch: o.cfg.Scratch, NoWait: o.cfg.NoWait})
	if err != nil {
		task.Status = ports.TaskFailed
		task.ErrorMessage = err.Error()
		return task, err
	}
	task.TaskID = taskID
	task.Status = ports.TaskBuilding

	if o.cfg.NoWait {
		return task, nil
	}

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-abort:
			ok, cancelErr := o.hub.Cancel(ctx, taskID)
			if ok {
				task.Status = ports.TaskCanceled
			} else {
				task.Status = ports.TaskFailed
			}
			return task, vberrors.NewHubBuildError(vberrors.HubBuildTaskFailed, "task canceled after sibling failure: "+packageName, cancelErr)
		case <-ctx.Done():
			// ctx is already done, so the cancel call gets a fresh context.
			if ok, _ := o.hub.Cancel(context.Background(), taskID); ok {
				task.Status = ports.TaskCanceled
			} else {
				task.Status = ports.TaskFailed
			}
			task.ErrorMessage = ctx.Err().Error()
			return task, ctx.Err()
		case <-ticker.C:
			status, err := o.hub.Status(ctx, taskID)
			if err != nil {
				task.Status = ports.TaskFailed
				task.ErrorMessage = err.Error()
				return task, err
			}
			task.Status = status
			if status.Terminal() {
				if status != ports.TaskComplete {
					return task, vberrors.NewHubBuildError(vberrors.HubBuildTaskFailed, "task did not complete: "+packageName, nil)
				}
				return task, nil
			}
		}
	}
}

// BuildSingle builds one archive with no dependency graph construction.
func (o *Orchestrator) BuildSingle(ctx context.Context, archivePath string) (BuildResult, error) {
	start := o.now()
	info, err := o.reader.Info(ctx, archivePath)
	if err != nil {
		return BuildResult{}, err
	}

	task, err := o.submitAndPoll(ctx, info.Name, archivePath, nil)
	result := BuildResult{Tasks: []BuildTask{task}, Success: err == nil && task.Status == ports.TaskComplete}
	if result.Success {
		result.BuiltPackages = []string{info.Name}
	} else {
		result.FailedPackages = []string{info.Name}
	}
	result.TotalSeconds = o.now().Sub(start).Seconds()
	return result, nil
}

// BuildChain builds a sequence of archives in order, waiting for repo
// regeneration between each, stopping at the first failure.
func (o *Orchestrator) BuildChain(ctx context.Context, archivePaths []string) (BuildResult, error) {
	start := o.now()
	result := BuildResult{Success: true}

	for _, path := range archivePaths {
		info, err := o.reader.Info(ctx, path)
		if err != nil {
			result.Success = false
			break
		}

		task, err := o.submitAndPoll(ctx, info.Name, path, nil)
		result.Tasks = append(result.Tasks, task)

		if err != nil || task.Status != ports.TaskComplete {
			result.FailedPackages = append(result.FailedPackages, info.Name)
			result.Success = false
			break
		}
		result.BuiltPackages = append(result.BuiltPackages, info.Name)
		_, _ = o.hub.WaitForRepo(ctx, o.cfg.HubBuildTag, o.cfg.WaitForRepoTimeout)
	}

	result.TotalSeconds = o.now().Sub(start).Seconds()
	return result, nil
}
