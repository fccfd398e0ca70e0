package naming

import (
	"strings"
	"testing"
)

func TestShortID(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"ws-007", "007"},
		{"gt-abc12", "abc12"},
		{"ws-epic-4", "epic-4"},
		{"standalone", "standalone"},
		{"ws-", "ws-"},
	}
	for _, c := range cases {
		if got := ShortID(c.id); got != c.want {
			t.Errorf("ShortID(%q) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestBuildNameFormat(t *testing.T) {
	got := BuildName("ws-007", "Fix login timeout", "open")
	want := "🟢 [007] Fix login timeout"
	if got != want {
		t.Errorf("BuildName = %q, want %q", got, want)
	}
}

func TestBuildNameDeterministic(t *testing.T) {
	a := BuildName("ws-42", "Some title", "blocked")
	b := BuildName("ws-42", "Some title", "blocked")
	if a != b {
		t.Errorf("BuildName not deterministic: %q vs %q", a, b)
	}
}

func TestBuildNameCap(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := BuildName("ws-007", long, "open")
	if n := len([]rune(got)); n > MaxNameLen {
		t.Errorf("name length = %d runes, want <= %d", n, MaxNameLen)
	}
	if !strings.HasSuffix(got, ellipsis) {
		t.Errorf("truncated name %q missing ellipsis", got)
	}
}

func TestBuildNameNoTruncationMarkerWhenShort(t *testing.T) {
	got := BuildName("ws-1", "short", "done")
	if strings.HasSuffix(got, ellipsis) {
		t.Errorf("short name %q should not carry ellipsis", got)
	}
}

// Statuses with different meanings must never share a glyph, except the
// closed/done pair which intentionally collapses to the check mark.
func TestGlyphsDistinguishStatuses(t *testing.T) {
	if Glyph("open") == Glyph("blocked") {
		t.Error("open and blocked share a glyph")
	}
	if Glyph("open") == Glyph("in_progress") {
		t.Error("open and in_progress share a glyph")
	}
	if Glyph("open") == Glyph("closed") {
		t.Error("open and closed share a glyph")
	}
	if Glyph("closed") != Glyph("done") {
		t.Error("closed and done should share the check mark")
	}
	if Glyph("tombstone") == Glyph("closed") {
		t.Error("tombstone and closed share a glyph")
	}
	if Glyph("nonsense") != unknownGlyph {
		t.Errorf("unknown status glyph = %q, want %q", Glyph("nonsense"), unknownGlyph)
	}
}

func TestExtractThreadRef(t *testing.T) {
	cases := []struct {
		ref  string
		want string
	}{
		{"discord:123456789", "123456789"},
		{"987654321", "987654321"},
		{" discord:42 ", "42"},
		{"", ""},
		{"discord:", ""},
		{"discord:abc", ""},
		{"jira:PROJ-1", ""},
		{"12a34", ""},
	}
	for _, c := range cases {
		if got := ExtractThreadRef(c.ref); got != c.want {
			t.Errorf("ExtractThreadRef(%q) = %q, want %q", c.ref, got, c.want)
		}
	}
}

func TestFormatThreadRefRoundTrip(t *testing.T) {
	ref := FormatThreadRef("555000111")
	if ref != "discord:555000111" {
		t.Errorf("FormatThreadRef = %q", ref)
	}
	if got := ExtractThreadRef(ref); got != "555000111" {
		t.Errorf("round trip = %q, want 555000111", got)
	}
}
