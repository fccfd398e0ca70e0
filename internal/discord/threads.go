// Package discord implements thread lifecycle operations against the
// Discord API.
//
// Each operation is a single remote call with no internal retry: failures
// come back as typed errors and callers are expected to log and move on,
// relying on the next reconciliation pass. Mutations of archived threads go
// through the unarchive → mutate → re-archive sequence in withUnarchived so
// every caller gets the same ordering guarantee.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Typed operation errors. Network and other transport failures are passed
// through wrapped but unclassified.
var (
	ErrNotFound         = errors.New("thread not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrPermissionDenied = errors.New("permission denied")
)

// maxAppliedTags is Discord's cap on applied tags per forum thread.
const maxAppliedTags = 5

// defaultTimeout bounds every REST call.
const defaultTimeout = 30 * time.Second

// threadAutoArchiveMinutes is the auto-archive duration requested for new
// threads (one week). The reconciler re-surfaces threads on rename anyway.
const threadAutoArchiveMinutes = 10080

// api is the slice of the Discord session used by thread operations.
// *discordgo.Session implements it; tests substitute a fake.
type api interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ForumThreadStartComplex(channelID string, threadData *discordgo.ThreadStart, messageData *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Thread is the bridge's view of a remote forum thread.
type Thread struct {
	ID          string
	Name        string
	Archived    bool
	OwnerID     string
	ParentID    string
	AppliedTags []string
}

// CreateOptions describes a thread to create in the managed forum.
type CreateOptions struct {
	Name    string
	Message string   // initial forum post body
	Tags    []string // applied tag IDs, capped at maxAppliedTags
}

// Threads performs thread lifecycle operations against one forum channel.
type Threads struct {
	api     api
	forumID string
	timeout time.Duration
	logger  *log.Logger
}

// New creates a Threads bound to the given forum channel.
func New(session api, forumID string, logger *log.Logger) *Threads {
	return &Threads{api: session, forumID: forumID, timeout: defaultTimeout, logger: logger}
}

// ForumID returns the managed forum channel ID.
func (t *Threads) ForumID() string {
	return t.forumID
}

func (t *Threads) opts() (discordgo.RequestOption, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	return discordgo.WithContext(ctx), cancel
}

// Get fetches the live state of a thread.
func (t *Threads) Get(threadID string) (*Thread, error) {
	opt, cancel := t.opts()
	defer cancel()

	ch, err := t.api.Channel(threadID, opt)
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", threadID, classify(err))
	}
	return fromChannel(ch), nil
}

// Create starts a new thread in the managed forum and returns its ID.
func (t *Threads) Create(opts CreateOptions) (string, error) {
	tags := opts.Tags
	if len(tags) > maxAppliedTags {
		tags = tags[:maxAppliedTags]
	}
	message := opts.Message
	if message == "" {
		message = opts.Name
	}

	opt, cancel := t.opts()
	defer cancel()

	ch, err := t.api.ForumThreadStartComplex(t.forumID, &discordgo.ThreadStart{
		Name:                opts.Name,
		AutoArchiveDuration: threadAutoArchiveMinutes,
		AppliedTags:         tags,
	}, &discordgo.MessageSend{Content: message}, opt)
	if err != nil {
		return "", fmt.Errorf("create thread %q: %w", opts.Name, classify(err))
	}
	return ch.ID, nil
}

// Rename sets a thread's name, unarchiving first when needed. When
// restoreArchive is true and the thread was archived going in, it is
// re-archived afterwards.
func (t *Threads) Rename(threadID, name string, restoreArchive bool) error {
	return t.withUnarchived(threadID, restoreArchive, func() error {
		opt, cancel := t.opts()
		defer cancel()
		_, err := t.api.ChannelEdit(threadID, &discordgo.ChannelEdit{Name: name}, opt)
		if err != nil {
			return fmt.Errorf("rename thread %s: %w", threadID, classify(err))
		}
		return nil
	})
}

// Post sends a message into a thread, unarchiving first when needed.
func (t *Threads) Post(threadID, text string, restoreArchive bool) error {
	return t.withUnarchived(threadID, restoreArchive, func() error {
		opt, cancel := t.opts()
		defer cancel()
		_, err := t.api.ChannelMessageSend(threadID, text, opt)
		if err != nil {
			return fmt.Errorf("post to thread %s: %w", threadID, classify(err))
		}
		return nil
	})
}

// SetArchived sets a thread's archived flag. Idempotent on the remote side:
// archiving an archived thread is a no-op flag write.
func (t *Threads) SetArchived(threadID string, archived bool) error {
	opt, cancel := t.opts()
	defer cancel()

	_, err := t.api.ChannelEdit(threadID, &discordgo.ChannelEdit{Archived: &archived}, opt)
	if err != nil {
		return fmt.Errorf("set archived=%v on thread %s: %w", archived, threadID, classify(err))
	}
	return nil
}

// withUnarchived runs fn with the thread guaranteed unarchived.
//
// Sequence: read archived flag → unarchive if set → fn → re-archive if it
// was archived and restore is true. A failed re-archive is logged and the
// thread is left unarchived; the next reconciliation pass corrects it.
func (t *Threads) withUnarchived(threadID string, restore bool, fn func() error) error {
	th, err := t.Get(threadID)
	if err != nil {
		return err
	}

	if th.Archived {
		if err := t.SetArchived(threadID, false); err != nil {
			return err
		}
	}

	fnErr := fn()

	if th.Archived && restore {
		if err := t.SetArchived(threadID, true); err != nil {
			t.logger.Printf("Warning: re-archive of thread %s failed, leaving unarchived: %v", threadID, err)
		}
	}

	return fnErr
}

// fromChannel converts a discordgo channel to the bridge's thread view.
func fromChannel(ch *discordgo.Channel) *Thread {
	th := &Thread{
		ID:          ch.ID,
		Name:        ch.Name,
		OwnerID:     ch.OwnerID,
		ParentID:    ch.ParentID,
		AppliedTags: ch.AppliedTags,
	}
	if ch.ThreadMetadata != nil {
		th.Archived = ch.ThreadMetadata.Archived
	}
	return th
}

// classify maps discordgo errors onto the bridge's error taxonomy.
func classify(err error) error {
	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return ErrRateLimited
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden:
			return ErrPermissionDenied
		case http.StatusTooManyRequests:
			return ErrRateLimited
		}
	}

	return err
}
