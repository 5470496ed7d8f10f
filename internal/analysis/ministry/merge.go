package ministry

import (
	"strings"

	"github.com/briefing-buddy/backend/internal/model/project"
)

// Merge overlays parsed counts onto the baseline table. Names are matched
// case-insensitively; unknown ministries are appended as placeholders.
func Merge(baseline []project.Ministry, counts []Count) []project.Ministry {
	merged := append([]project.Ministry(nil), baseline...)
	index := make(map[string]int, len(merged)+len(counts))
	for i, m := range merged {
		index[strings.ToLower(strings.TrimSpace(m.Name))] = i
	}

	for _, c := range counts {
		name := strings.TrimSpace(c.Ministry)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			merged[i].ProjectCount = c.Count
			continue
		}
		merged = append(merged, project.NewPlaceholder(name, c.Count))
		index[key] = len(merged) - 1
	}
	return merged
}
