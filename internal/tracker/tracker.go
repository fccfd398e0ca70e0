// Package tracker provides a wrapper for the bd (beads) task tracker CLI.
//
// The tracker is the authoritative store for issue fields. The bridge only
// reads issues and writes back status corrections and the external_ref link.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNotInstalled = errors.New("bd not installed: see https://github.com/steveyegge/beads")
	ErrNotFound     = errors.New("issue not found")
)

// Issue statuses. Terminal statuses mean no further active work.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusClosed     = "closed"
	StatusDone       = "done"
	StatusTombstone  = "tombstone"
)

// IsTerminal reports whether a status is terminal (closed, done, tombstone).
func IsTerminal(status string) bool {
	switch status {
	case StatusClosed, StatusDone, StatusTombstone:
		return true
	}
	return false
}

// defaultTimeout bounds every bd invocation so a wedged tracker process
// can't stall a reconciliation pass.
const defaultTimeout = 30 * time.Second

// Issue represents a tracker issue.
type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    int       `json:"priority"`
	Type        string    `json:"issue_type"`
	Owner       string    `json:"owner,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
	ClosedAt    string    `json:"closed_at,omitempty"`
	CloseReason string    `json:"close_reason,omitempty"`
}

// Comment is a single issue comment.
type Comment struct {
	Author    string `json:"author,omitempty"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Terminal reports whether the issue is in a terminal status.
func (i *Issue) Terminal() bool {
	return IsTerminal(i.Status)
}

// HasLabel checks if an issue carries a specific label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ListOptions specifies filters for listing issues.
type ListOptions struct {
	Status string // "open", "closed", "all"; empty means bd's default
	Label  string // label filter
	Limit  int    // max results (0 = unlimited, overrides bd default of 50)
}

// UpdateOptions specifies fields to update on an issue.
// Nil pointer fields are left untouched.
type UpdateOptions struct {
	Status       *string
	ExternalRef  *string
	AddLabels    []string
	RemoveLabels []string
}

// Client wraps bd CLI operations for a working directory.
type Client struct {
	workDir  string
	timeout  time.Duration
	isolated bool // suppress inherited beads env vars (for test isolation)
}

// New creates a Client for the given tracker working directory.
func New(workDir string) *Client {
	return &Client{workDir: workDir, timeout: defaultTimeout}
}

// NewIsolated creates a Client for test isolation. Inherited beads env vars
// (BD_ACTOR, BEADS_DIR, ...) are stripped so tests can't route to a
// production database.
func NewIsolated(workDir string) *Client {
	return &Client{workDir: workDir, timeout: defaultTimeout, isolated: true}
}

// run executes a bd command and returns stdout.
func (c *Client) run(args ...string) ([]byte, error) {
	// --allow-stale prevents failures when the db is out of sync with the
	// JSONL export (e.g. after an unclean shutdown).
	fullArgs := append([]string{"--allow-stale"}, args...)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bd", fullArgs...) //nolint:gosec // G204: bd is a trusted internal tool
	cmd.Dir = c.workDir
	cmd.Env = c.env()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("bd %s: timed out after %s", strings.Join(args, " "), c.timeout)
		}
		return nil, c.wrapError(err, stderr.String(), args)
	}

	// bd can exit 0 with an error on stderr and nothing on stdout.
	// Treat that as an error to avoid JSON parse failures downstream.
	if stdout.Len() == 0 && stderr.Len() > 0 {
		return nil, c.wrapError(fmt.Errorf("command produced no output"), stderr.String(), args)
	}

	return stdout.Bytes(), nil
}

// env builds the subprocess environment. In isolated mode, beads-related
// vars are filtered out so tests never touch a real database.
func (c *Client) env() []string {
	if c.isolated {
		return filterTrackerEnv(os.Environ())
	}
	return os.Environ()
}

// wrapError wraps bd errors with context. Stderr parsing is kept to the
// minimum needed for basic error handling: not-installed and not-found.
func (c *Client) wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	if execErr, ok := err.(*exec.Error); ok && errors.Is(execErr.Err, exec.ErrNotFound) {
		return ErrNotInstalled
	}

	if strings.Contains(stderr, "not found") || strings.Contains(stderr, "Issue not found") ||
		strings.Contains(stderr, "no issue found") {
		return ErrNotFound
	}

	if stderr != "" {
		return fmt.Errorf("bd %s: %s", strings.Join(args, " "), stderr)
	}
	return fmt.Errorf("bd %s: %w", strings.Join(args, " "), err)
}

// filterTrackerEnv removes beads-related environment variables so isolated
// clients can't be routed to production databases by inherited config.
func filterTrackerEnv(environ []string) []string {
	filtered := make([]string, 0, len(environ))
	for _, env := range environ {
		if strings.HasPrefix(env, "BD_ACTOR=") ||
			strings.HasPrefix(env, "BEADS_") {
			continue
		}
		filtered = append(filtered, env)
	}
	return filtered
}

// buildListArgs converts ListOptions to bd arguments.
func buildListArgs(opts ListOptions) []string {
	args := []string{"list", "--json"}
	if opts.Status != "" {
		args = append(args, "--status="+opts.Status)
	}
	if opts.Label != "" {
		args = append(args, "--label="+opts.Label)
	}
	if opts.Limit > 0 {
		args = append(args, fmt.Sprintf("--limit=%d", opts.Limit))
	} else {
		// Override bd's default limit of 50 to avoid silent truncation.
		args = append(args, "--limit=0")
	}
	return args
}

// List returns issues matching the given options.
func (c *Client) List(opts ListOptions) ([]*Issue, error) {
	out, err := c.run(buildListArgs(opts)...)
	if err != nil {
		return nil, err
	}

	var issues []*Issue
	if err := json.Unmarshal(out, &issues); err != nil {
		return nil, fmt.Errorf("parsing bd list output: %w", err)
	}
	return issues, nil
}

// ListAll returns every issue regardless of status.
func (c *Client) ListAll() ([]*Issue, error) {
	return c.List(ListOptions{Status: "all"})
}

// ListActive returns non-terminal issues only.
func (c *Client) ListActive() ([]*Issue, error) {
	all, err := c.ListAll()
	if err != nil {
		return nil, err
	}
	active := make([]*Issue, 0, len(all))
	for _, issue := range all {
		if !issue.Terminal() {
			active = append(active, issue)
		}
	}
	return active, nil
}

// Show returns detailed information about an issue.
func (c *Client) Show(id string) (*Issue, error) {
	out, err := c.run("show", id, "--json")
	if err != nil {
		return nil, err
	}

	// bd show --json returns an array with one element.
	var issues []*Issue
	if err := json.Unmarshal(out, &issues); err != nil {
		return nil, fmt.Errorf("parsing bd show output: %w", err)
	}
	if len(issues) == 0 {
		return nil, ErrNotFound
	}
	return issues[0], nil
}

// buildUpdateArgs converts UpdateOptions to bd arguments.
func buildUpdateArgs(id string, opts UpdateOptions) []string {
	args := []string{"update", id}
	if opts.Status != nil {
		args = append(args, "--status="+*opts.Status)
	}
	if opts.ExternalRef != nil {
		args = append(args, "--external-ref="+*opts.ExternalRef)
	}
	for _, label := range opts.AddLabels {
		args = append(args, "--add-label="+label)
	}
	for _, label := range opts.RemoveLabels {
		args = append(args, "--remove-label="+label)
	}
	return args
}

// Update updates an existing issue. Best-effort from the bridge's point of
// view: callers log failures and rely on the next pass rather than retrying.
func (c *Client) Update(id string, opts UpdateOptions) error {
	_, err := c.run(buildUpdateArgs(id, opts)...)
	return err
}

// IsTrackerRepo checks if the working directory has a beads database.
func (c *Client) IsTrackerRepo() bool {
	info, err := os.Stat(filepath.Join(c.workDir, ".beads"))
	return err == nil && info.IsDir()
}

// ChangeFile returns the tracker's on-disk change indicator: the JSONL
// export bd rewrites after every mutation. The change watcher observes it.
func (c *Client) ChangeFile() string {
	return filepath.Join(c.workDir, ".beads", "issues.jsonl")
}
