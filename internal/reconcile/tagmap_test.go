package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTagMap(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tags.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTagMapMissingFile(t *testing.T) {
	m := LoadTagMap(filepath.Join(t.TempDir(), "nope.json"))
	if m == nil || len(m) != 0 {
		t.Errorf("missing file: got %v, want empty map", m)
	}
}

func TestLoadTagMapParseFailure(t *testing.T) {
	path := writeTagMap(t, "{not json at all")
	m := LoadTagMap(path)
	if len(m) != 0 {
		t.Errorf("parse failure: got %v, want empty map", m)
	}
}

func TestLoadTagMapWithComments(t *testing.T) {
	path := writeTagMap(t, `{
		// forum tag ids
		"bug": "111",
		"feature": "222", // trailing comma next
	}`)
	m := LoadTagMap(path)
	want := map[string]string{"bug": "111", "feature": "222"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("tag map mismatch (-want +got):\n%s", diff)
	}
}

func TestTagsForSkipsUnknownLabels(t *testing.T) {
	tagMap := map[string]string{"bug": "111"}
	got := tagsFor([]string{"bug", "mystery-label"}, tagMap)
	want := []string{"111"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tagsFor mismatch (-want +got):\n%s", diff)
	}
}

func TestTagsForCapsAtFive(t *testing.T) {
	tagMap := map[string]string{}
	var labels []string
	for _, l := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		tagMap[l] = "tag-" + l
		labels = append(labels, l)
	}
	got := tagsFor(labels, tagMap)
	if len(got) != maxTags {
		t.Errorf("tagsFor returned %d tags, want %d", len(got), maxTags)
	}
}

func TestTagsForDeterministic(t *testing.T) {
	tagMap := map[string]string{"x": "2", "y": "1"}
	a := tagsFor([]string{"x", "y"}, tagMap)
	b := tagsFor([]string{"y", "x"}, tagMap)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("tagsFor order-sensitive (-a +b):\n%s", diff)
	}
}

func TestTagsForDedupes(t *testing.T) {
	tagMap := map[string]string{"bug": "111", "defect": "111"}
	got := tagsFor([]string{"bug", "defect"}, tagMap)
	if len(got) != 1 {
		t.Errorf("tagsFor = %v, want single deduped tag", got)
	}
}
