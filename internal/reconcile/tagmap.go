package reconcile

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/tailscale/hujson"
)

// maxTags is Discord's cap on applied tags per forum thread.
const maxTags = 5

// LoadTagMap reads the label→forum-tag mapping from a JSON file. The file
// may carry comments and trailing commas. A missing file or parse failure
// yields an empty map, never an error: unknown labels simply produce no tag.
func LoadTagMap(path string) map[string]string {
	empty := map[string]string{}
	if path == "" {
		return empty
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is from trusted config
	if err != nil {
		return empty
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return empty
	}

	var m map[string]string
	if err := json.Unmarshal(standardized, &m); err != nil {
		return empty
	}
	return m
}

// tagsFor maps issue labels to forum tag IDs, skipping labels with no
// mapping and capping the result at maxTags. The result is sorted so the
// same label set always yields the same tag list.
func tagsFor(labels []string, tagMap map[string]string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, label := range labels {
		tag, ok := tagMap[label]
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}
