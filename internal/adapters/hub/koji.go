// Package hub adapts the build hub's command-line tool to ports.HubClient.
// It shells out through ports.CommandRunner so tests substitute a mock
// runner instead of touching a real hub.
package hub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ssokkol/koji-vibebuild/internal/domain/vberrors"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
)

// Client wraps a "koji"-compatible CLI.
type Client struct {
	runner    ports.CommandRunner
	logger    ports.Logger
	server    string
	cert      string
	serverCA  string
	sslVerify bool

	mu         sync.RWMutex
	listCache  map[string][]string
}

// Option configures a Client.
type Option func(*Client)

func WithCert(cert, serverCA string) Option {
	return func(c *Client) { c.cert, c.serverCA = cert, serverCA }
}

func WithoutSSLVerify() Option {
	return func(c *Client) { c.sslVerify = false }
}

func WithLogger(l ports.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a hub Client talking to server via runner.
func NewClient(runner ports.CommandRunner, server string, opts ...Option) *Client {
	c := &Client{
		runner:    runner,
		server:    server,
		sslVerify: true,
		listCache: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) baseArgs() []string {
	args := []string{fmt.Sprintf("--server=%s", c.server)}
	if c.cert != "" {
		args = append(args, fmt.Sprintf("--cert=%s", c.cert))
	}
	if c.serverCA != "" {
		args = append(args, fmt.Sprintf("--serverca=%s", c.serverCA))
	}
	return args
}

// run shells out to the koji CLI with a hub-submission retry policy: up to
// 3 attempts, exponential backoff starting at 10s. Only runner-level errors
// (the CLI could not be run at all) are retried; a command that runs and
// exits nonzero is returned as-is for the caller to interpret.
func (c *Client) run(ctx context.Context, args ...string) (ports.CommandResult, error) {
	full := append(c.baseArgs(), args...)

	var lastErr error
	backoff := 10 * time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		res, err := c.runner.Run(ctx, "koji", full...)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == 3 {
			break
		}
		select {
		case <-ctx.Done():
			return ports.CommandResult{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return ports.CommandResult{}, vberrors.NewHubConnectionError("koji command failed after retries", lastErr)
}

// ListPackages lists package names in tag, memoized for the process
// lifetime until InvalidateListCache is called.
func (c *Client) ListPackages(ctx context.Context, tag string) ([]string, error) {
	c.mu.RLock()
	if cached, ok := c.listCache[tag]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	res, err := c.run(ctx, "list-pkgs", fmt.Sprintf("--tag=%s", tag), "--quiet")
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, vberrors.NewHubConnectionError("failed to list packages: "+res.Stderr, nil)
	}

	var pkgs []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			pkgs = append(pkgs, fields[0])
		}
	}

	c.mu.Lock()
	c.listCache[tag] = pkgs
	c.mu.Unlock()

	return pkgs, nil
}

// Exists reports whether name is a member of ListPackages(tag).
func (c *Client) Exists(ctx context.Context, name, tag string) (bool, error) {
	pkgs, err := c.ListPackages(ctx, tag)
	if err != nil {
		return false, err
	}
	for _, p := range pkgs {
		if p == name {
			return true, nil
		}
	}
	return false, nil
}

// ListTaggedBuilds returns a mapping of package name to NVR.
func (c *Client) ListTaggedBuilds(ctx context.Context, tag string) (map[string]string, error) {
	res, err := c.run(ctx, "list-tagged", tag, "--quiet")
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, vberrors.NewHubConnectionError("failed to list tagged builds: "+res.Stderr, nil)
	}

	builds := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		nvr := fields[0]
		builds[nameFromNVR(nvr)] = nvr
	}
	return builds, nil
}

// nameFromNVR strips the last two hyphen-delimited segments (version,
// release) from an NVR to recover the package name.
func nameFromNVR(nvr string) string {
	parts := strings.Split(nvr, "-")
	if len(parts) <= 2 {
		return nvr
	}
	return strings.Join(parts[:len(parts)-2], "-")
}

// SubmitBuild submits archivePath against target and returns the parsed
// task id.
func (c *Client) SubmitBuild(ctx context.Context, target, archivePath string, flags ports.BuildFlags) (int, error) {
	args := []string{"build"}
	if flags.Scratch {
		args = append(args, "--scratch")
	}
	if flags.NoWait {
		args = append(args, "--nowait")
	}
	args = append(args, target, archivePath)

	res, err := c.run(ctx, args...)
	if err != nil {
		return 0, err
	}
	if !res.Success() {
		return 0, vberrors.NewHubBuildError(vberrors.HubBuildSubmitFailed, "build submission failed: "+res.Stderr, nil)
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		if idx := strings.Index(line, "Created task:"); idx >= 0 {
			if id, ok := parseTrailingInt(line); ok {
				return id, nil
			}
		}
		if idx := strings.Index(line, "Task info:"); idx >= 0 {
			if id, ok := parseTrailingInt(line); ok {
				return id, nil
			}
		}
	}
	return 0, vberrors.NewHubBuildError(vberrors.HubBuildSubmitFailed, "could not parse task id from hub output", nil)
}

// DownloadBuild fetches nvr's source RPM via `download-build --arch=src`,
// run with destDir as the working directory since the koji CLI always
// drops downloaded files into the current directory. Retries with the
// same policy as run(): up to 3 attempts, exponential backoff from 10s.
func (c *Client) DownloadBuild(ctx context.Context, nvr, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	args := append(c.baseArgs(), "download-build", "--arch=src", nvr)
	script := "cd " + shellQuote(destDir) + " && koji " + strings.Join(quoteAll(args), " ")

	var lastErr error
	backoff := 10 * time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		res, err := c.runner.Run(ctx, "sh", "-c", script)
		switch {
		case err != nil:
			lastErr = err
		case !res.Success():
			lastErr = fmt.Errorf("download-build failed for %s: %s", nvr, res.Stderr)
		default:
			matches, globErr := filepath.Glob(filepath.Join(destDir, "*.src.rpm"))
			if globErr == nil && len(matches) > 0 {
				return matches[0], nil
			}
			lastErr = fmt.Errorf("download-build produced no .src.rpm for %s", nvr)
		}

		if attempt == 3 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", vberrors.NewHubConnectionError("download-build failed after retries", lastErr)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = shellQuote(a)
	}
	return out
}

func parseTrailingInt(line string) (int, bool) {
	sep := ":"
	if strings.Contains(line, "=") && !strings.Contains(line, "Created task:") {
		sep = "="
	}
	parts := strings.Split(line, sep)
	last := strings.TrimSpace(parts[len(parts)-1])
	id, err := strconv.Atoi(last)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Status returns the current state of taskID.
func (c *Client) Status(ctx context.Context, taskID int) (ports.TaskStatus, error) {
	res, err := c.run(ctx, "taskinfo", strconv.Itoa(taskID))
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return ports.TaskFailed, nil
	}

	out := strings.ToLower(res.Stdout)
	switch {
	case strings.Contains(out, "closed"), strings.Contains(out, "complete"):
		return ports.TaskComplete, nil
	case strings.Contains(out, "failed"):
		return ports.TaskFailed, nil
	case strings.Contains(out, "canceled"):
		return ports.TaskCanceled, nil
	case strings.Contains(out, "open"), strings.Contains(out, "free"), strings.Contains(out, "assigned"):
		return ports.TaskBuilding, nil
	default:
		return ports.TaskPending, nil
	}
}

// Cancel attempts to cancel taskID.
func (c *Client) Cancel(ctx context.Context, taskID int) (bool, error) {
	res, err := c.run(ctx, "cancel", strconv.Itoa(taskID))
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

// WaitForRepo blocks until tag's repo has regenerated or the timeout
// elapses.
func (c *Client) WaitForRepo(ctx context.Context, tag string, timeoutSeconds int) (bool, error) {
	res, err := c.run(ctx, "wait-repo", tag, fmt.Sprintf("--timeout=%d", timeoutSeconds))
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

// InvalidateListCache clears memoized ListPackages results.
func (c *Client) InvalidateListCache() {
	c.mu.Lock()
	c.listCache = make(map[string][]string)
	c.mu.Unlock()
}

var _ ports.HubClient = (*Client)(nil)
