// Package naming derives canonical Discord thread names from tracker issues.
//
// BuildName is the single source of truth for what a thread should be called:
// the coordinator and any ad-hoc caller must go through it so a given
// (id, title, status) triple always maps to exactly one name.
package naming

import (
	"fmt"
	"strings"
)

// MaxNameLen is Discord's hard cap on channel/thread names.
const MaxNameLen = 100

// ellipsis marks a truncated thread name.
const ellipsis = "…"

// statusGlyphs maps tracker statuses to the leading name glyph.
// Terminal statuses (closed, done) share the check mark; tombstone gets
// its own marker so retired-but-never-worked issues are distinguishable.
var statusGlyphs = map[string]string{
	"open":        "🟢",
	"in_progress": "🟡",
	"blocked":     "🔴",
	"closed":      "✅",
	"done":        "✅",
	"tombstone":   "⚰️",
}

// unknownGlyph is used for statuses the bridge doesn't recognize.
const unknownGlyph = "⚪"

// Glyph returns the status glyph for a tracker status.
func Glyph(status string) string {
	if g, ok := statusGlyphs[status]; ok {
		return g
	}
	return unknownGlyph
}

// ShortID strips the project-prefix segment from an issue ID:
// "ws-007" becomes "007". IDs without a separator are returned whole.
func ShortID(id string) string {
	if _, rest, ok := strings.Cut(id, "-"); ok && rest != "" {
		return rest
	}
	return id
}

// BuildName computes the canonical thread name for an issue.
// Format: "<glyph> [<short-id>] <title>", truncated to MaxNameLen runes
// with an ellipsis marker when truncation occurs.
func BuildName(id, title, status string) string {
	name := fmt.Sprintf("%s [%s] %s", Glyph(status), ShortID(id), title)
	runes := []rune(name)
	if len(runes) <= MaxNameLen {
		return name
	}
	return string(runes[:MaxNameLen-1]) + ellipsis
}

// ExtractThreadRef parses an external_ref value into a Discord thread ID.
// Accepts "discord:<digits>" or a bare digit string. Anything else returns
// "": a malformed ref means unlinked, never an error.
func ExtractThreadRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if rest, ok := strings.CutPrefix(ref, "discord:"); ok {
		ref = rest
	}
	if ref == "" || !isDigits(ref) {
		return ""
	}
	return ref
}

// FormatThreadRef encodes a thread ID in the preferred external_ref form.
func FormatThreadRef(threadID string) string {
	return "discord:" + threadID
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
