// Package reconcile converges the task tracker with the managed Discord
// forum.
//
// One Pass runs four ordered phases: link missing tasks, push label-implied
// status corrections, sync thread names, and retire threads for terminal
// tasks. A failing item is logged and skipped; it never aborts its phase.
// There is no transaction spanning the two stores: every remote operation
// is idempotent by construction and the tracker's external_ref is the
// single source of truth for linkage, with a documented inconsistency
// window between "thread created" and "link persisted".
package reconcile

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/forgekeep/threadbridge/internal/discord"
	"github.com/forgekeep/threadbridge/internal/naming"
	"github.com/forgekeep/threadbridge/internal/tracker"
)

// Tracker is the slice of the task store client the coordinator uses.
type Tracker interface {
	ListAll() ([]*tracker.Issue, error)
	Update(id string, opts tracker.UpdateOptions) error
}

// Threads is the slice of thread lifecycle operations the coordinator uses.
type Threads interface {
	Get(threadID string) (*discord.Thread, error)
	Create(opts discord.CreateOptions) (string, error)
	Rename(threadID, name string, restoreArchive bool) error
	Post(threadID, text string, restoreArchive bool) error
	SetArchived(threadID string, archived bool) error
}

// Counters aggregates what one pass changed.
type Counters struct {
	ThreadsCreated  int `json:"threads_created"`
	NamesUpdated    int `json:"names_updated"`
	ThreadsArchived int `json:"threads_archived"`
	StatusFixed     int `json:"status_fixed"`
	Failures        int `json:"failures"`
}

// Add accumulates another pass's counters.
func (c *Counters) Add(o Counters) {
	c.ThreadsCreated += o.ThreadsCreated
	c.NamesUpdated += o.NamesUpdated
	c.ThreadsArchived += o.ThreadsArchived
	c.StatusFixed += o.StatusFixed
	c.Failures += o.Failures
}

// labelStatusRules maps label prefixes to the status they imply. Phase 2
// pushes these corrections into the tracker when the recorded status lags.
var labelStatusRules = []struct {
	labelPrefix string
	status      string
}{
	{"blocked", tracker.StatusBlocked},
}

// closedFallbackMessage is posted when a terminal task has no close_reason.
const closedFallbackMessage = "Closed."

// Config holds coordinator settings.
type Config struct {
	// TagMapPath is the label→forum-tag mapping file, reloaded once per pass.
	TagMapPath string

	// NoThreadLabel exempts a task from Phase 1 entirely.
	NoThreadLabel string

	// InterCallDelay is slept after each mutating remote call to respect
	// rate limits. Zero disables the delay (tests).
	InterCallDelay time.Duration
}

// Coordinator runs reconciliation passes. It holds no mutable state between
// passes; serialization of passes is the Runner's job.
type Coordinator struct {
	tracker Tracker
	threads Threads
	cfg     Config
	logger  *log.Logger
}

// New creates a Coordinator.
func New(trk Tracker, threads Threads, cfg Config, logger *log.Logger) *Coordinator {
	return &Coordinator{tracker: trk, threads: threads, cfg: cfg, logger: logger}
}

// Pass runs one full four-phase reconciliation pass and returns what it
// changed. Safe to call concurrently with the guard's event handlers, but
// never with itself; the caller must serialize passes.
func (c *Coordinator) Pass() Counters {
	var counters Counters

	issues, err := c.tracker.ListAll()
	if err != nil {
		c.logger.Printf("Pass aborted: listing issues: %v", err)
		counters.Failures++
		return counters
	}

	tagMap := LoadTagMap(c.cfg.TagMapPath)

	c.linkMissing(issues, tagMap, &counters)
	c.fixLabelStatus(issues, &counters)
	c.syncNames(issues, &counters)
	c.retireTerminal(issues, &counters)

	return counters
}

// linkMissing is Phase 1: create a thread for every non-terminal task with
// no link, then persist the link on the task. Tasks carrying the opt-out
// label are never considered missing.
func (c *Coordinator) linkMissing(issues []*tracker.Issue, tagMap map[string]string, counters *Counters) {
	for _, issue := range issues {
		if issue.Terminal() {
			continue
		}
		if c.cfg.NoThreadLabel != "" && issue.HasLabel(c.cfg.NoThreadLabel) {
			continue
		}
		if naming.ExtractThreadRef(issue.ExternalRef) != "" {
			continue
		}

		threadID, err := c.threads.Create(discord.CreateOptions{
			Name:    naming.BuildName(issue.ID, issue.Title, issue.Status),
			Message: initialMessage(issue),
			Tags:    tagsFor(issue.Labels, tagMap),
		})
		if err != nil {
			c.logger.Printf("Phase 1: creating thread for %s: %v", issue.ID, err)
			counters.Failures++
			continue
		}
		counters.ThreadsCreated++
		c.pace()

		ref := naming.FormatThreadRef(threadID)
		if err := c.tracker.Update(issue.ID, tracker.UpdateOptions{ExternalRef: &ref}); err != nil {
			// The thread exists but the link didn't persist. No compensating
			// delete: the inconsistency window is accepted and the next pass
			// may create a duplicate if external_ref is still unset.
			c.logger.Printf("Warning: thread %s created for %s but link write-back failed: %v", threadID, issue.ID, err)
			counters.Failures++
			continue
		}
		// Keep the in-memory copy linked so later phases in this pass see it.
		issue.ExternalRef = ref
	}
}

// fixLabelStatus is Phase 2: when labels imply a status the tracker hasn't
// recorded yet, push the correction. This phase never touches the chat side.
func (c *Coordinator) fixLabelStatus(issues []*tracker.Issue, counters *Counters) {
	for _, issue := range issues {
		if issue.Terminal() {
			continue
		}
		implied := impliedStatus(issue.Labels)
		if implied == "" || implied == issue.Status {
			continue
		}
		// Only lift open/in_progress tasks; never override an explicit state.
		if issue.Status != tracker.StatusOpen && issue.Status != tracker.StatusInProgress {
			continue
		}

		status := implied
		if err := c.tracker.Update(issue.ID, tracker.UpdateOptions{Status: &status}); err != nil {
			c.logger.Printf("Phase 2: updating status of %s to %s: %v", issue.ID, implied, err)
			counters.Failures++
			continue
		}
		issue.Status = implied
		counters.StatusFixed++
	}
}

// syncNames is Phase 3: for every non-terminal linked task, rename the
// thread if its live name differs from the canonical one. A thread that no
// longer resolves is skipped: a dangling link is left for manual
// inspection, never silently replaced.
func (c *Coordinator) syncNames(issues []*tracker.Issue, counters *Counters) {
	for _, issue := range issues {
		if issue.Terminal() {
			continue
		}
		threadID := naming.ExtractThreadRef(issue.ExternalRef)
		if threadID == "" {
			continue
		}

		th, err := c.threads.Get(threadID)
		if err != nil {
			if !errors.Is(err, discord.ErrNotFound) {
				c.logger.Printf("Phase 3: fetching thread %s for %s: %v", threadID, issue.ID, err)
				counters.Failures++
			}
			continue
		}

		want := naming.BuildName(issue.ID, issue.Title, issue.Status)
		if th.Name == want {
			continue
		}
		if err := c.threads.Rename(threadID, want, false); err != nil {
			c.logger.Printf("Phase 3: renaming thread %s for %s: %v", threadID, issue.ID, err)
			counters.Failures++
			continue
		}
		counters.NamesUpdated++
		c.pace()
	}
}

// retireTerminal is Phase 4: for every terminal task with a link, make sure
// the thread carries the canonical closed-form name and is archived, posting
// a closure message on the way out.
func (c *Coordinator) retireTerminal(issues []*tracker.Issue, counters *Counters) {
	for _, issue := range issues {
		if !issue.Terminal() {
			continue
		}
		threadID := naming.ExtractThreadRef(issue.ExternalRef)
		if threadID == "" {
			continue
		}

		th, err := c.threads.Get(threadID)
		if err != nil {
			if !errors.Is(err, discord.ErrNotFound) {
				c.logger.Printf("Phase 4: fetching thread %s for %s: %v", threadID, issue.ID, err)
				counters.Failures++
			}
			continue
		}

		want := naming.BuildName(issue.ID, issue.Title, issue.Status)
		if th.Archived && th.Name == want {
			continue // already retired
		}

		if err := c.threads.Post(threadID, closeMessage(issue), false); err != nil {
			c.logger.Printf("Phase 4: posting closure to %s for %s: %v", threadID, issue.ID, err)
			counters.Failures++
			continue
		}
		if th.Name != want {
			if err := c.threads.Rename(threadID, want, false); err != nil {
				c.logger.Printf("Phase 4: renaming thread %s for %s: %v", threadID, issue.ID, err)
				counters.Failures++
				continue
			}
		}
		if err := c.threads.SetArchived(threadID, true); err != nil {
			c.logger.Printf("Phase 4: archiving thread %s for %s: %v", threadID, issue.ID, err)
			counters.Failures++
			continue
		}
		counters.ThreadsArchived++
		c.pace()
	}
}

// pace sleeps between mutating remote calls to stay under rate limits.
func (c *Coordinator) pace() {
	if c.cfg.InterCallDelay > 0 {
		time.Sleep(c.cfg.InterCallDelay)
	}
}

// impliedStatus returns the status implied by the issue's labels, or ""
// when no rule matches.
func impliedStatus(labels []string) string {
	for _, label := range labels {
		for _, rule := range labelStatusRules {
			if strings.HasPrefix(label, rule.labelPrefix) {
				return rule.status
			}
		}
	}
	return ""
}

// initialMessage is the first post of a newly created thread.
func initialMessage(issue *tracker.Issue) string {
	if issue.Description != "" {
		return issue.Description
	}
	return issue.Title
}

// closeMessage is posted into a thread when its task reaches terminal state.
func closeMessage(issue *tracker.Issue) string {
	if issue.CloseReason != "" {
		return issue.CloseReason
	}
	return closedFallbackMessage
}
