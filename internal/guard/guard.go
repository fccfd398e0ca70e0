// Package guard enforces the standing invariant that every live thread in
// the managed forum is bot-created.
//
// The guard is reactive, not polling: it listens to thread-create and
// thread-update gateway events and rejects threads whose owner is not the
// bridge's own identity. Ownership alone is the discriminant: the guard
// never consults the task store, which is what lets it run concurrently
// with a reconciliation pass without any shared state. A thread the
// coordinator is mid-creating is bot-owned the instant it exists, so there
// is no race window that exposes it to rejection.
package guard

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// guidanceMessage is posted into a rejected thread before archiving it.
const guidanceMessage = "This forum is managed automatically: threads are " +
	"created from tracker issues and retired when they close. Please file " +
	"an issue in the tracker instead of opening threads here. Archiving " +
	"this thread."

// threadOps is the slice of thread operations the guard needs.
type threadOps interface {
	Post(threadID, text string, restoreArchive bool) error
	SetArchived(threadID string, archived bool) error
}

// Guard rejects manually-created threads in the managed forum.
type Guard struct {
	forumID string
	botID   string
	threads threadOps
	logger  *log.Logger
}

// New creates a Guard for the given forum, owned by the given bot identity.
func New(forumID, botID string, threads threadOps, logger *log.Logger) *Guard {
	return &Guard{forumID: forumID, botID: botID, threads: threads, logger: logger}
}

// Register attaches the guard's handlers to a Discord session.
func (g *Guard) Register(s *discordgo.Session) {
	s.AddHandler(g.onThreadCreate)
	s.AddHandler(g.onThreadUpdate)
}

func (g *Guard) onThreadCreate(_ *discordgo.Session, ev *discordgo.ThreadCreate) {
	if ev.Channel == nil {
		return
	}
	if !g.rejectCreate(ev.ParentID, ev.OwnerID) {
		return
	}
	g.logger.Printf("Guard: rejecting thread %s (%q) created by %s", ev.ID, ev.Name, ev.OwnerID)
	g.reject(ev.ID)
}

func (g *Guard) onThreadUpdate(_ *discordgo.Session, ev *discordgo.ThreadUpdate) {
	if ev.Channel == nil || ev.BeforeUpdate == nil {
		// Without the before state there is no observable transition.
		return
	}
	wasArchived := threadArchived(ev.BeforeUpdate)
	nowArchived := threadArchived(ev.Channel)
	if !g.rejectUpdate(ev.ParentID, ev.OwnerID, wasArchived, nowArchived) {
		return
	}
	g.logger.Printf("Guard: thread %s (%q) unarchived by non-bot owner %s, re-archiving", ev.ID, ev.Name, ev.OwnerID)
	g.reject(ev.ID)
}

// rejectCreate reports whether a newly created thread must be rejected:
// it lives in the managed forum and is not bot-owned.
func (g *Guard) rejectCreate(parentID, ownerID string) bool {
	return parentID == g.forumID && ownerID != "" && ownerID != g.botID
}

// rejectUpdate reports whether an updated thread must be rejected: only the
// archived→unarchived transition of a non-bot-owned thread fires. Archive-
// direction transitions and bot-owned threads are ignored.
func (g *Guard) rejectUpdate(parentID, ownerID string, wasArchived, nowArchived bool) bool {
	if parentID != g.forumID || ownerID == "" || ownerID == g.botID {
		return false
	}
	return wasArchived && !nowArchived
}

// reject posts one guidance message and archives the thread. Each rejection
// event produces exactly one message; a later re-unarchive is a new event
// and gets one more.
func (g *Guard) reject(threadID string) {
	if err := g.threads.Post(threadID, guidanceMessage, false); err != nil {
		g.logger.Printf("Guard: posting guidance to %s failed: %v", threadID, err)
	}
	if err := g.threads.SetArchived(threadID, true); err != nil {
		g.logger.Printf("Guard: archiving %s failed: %v", threadID, err)
	}
}

func threadArchived(ch *discordgo.Channel) bool {
	return ch.ThreadMetadata != nil && ch.ThreadMetadata.Archived
}
