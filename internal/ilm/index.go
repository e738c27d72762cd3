package ilm

import (
	"slices"
)

// ExtractIndexes walks every span and collects the ids of embedded references
// and debates. Both results are sorted and deduplicated so that span order
// never changes the outcome.
func ExtractIndexes(blocks []Block) (references, debates []string) {
	refs := make(map[string]struct{})
	debs := make(map[string]struct{})

	for _, b := range blocks {
		for _, u := range b.Units {
			for _, s := range u.Spans {
				if s.Data == nil {
					continue
				}
				switch s.Type {
				case SpanReference:
					if s.Data.RefID != "" {
						refs[s.Data.RefID] = struct{}{}
					}
				case SpanDebate:
					if s.Data.DebateID != "" {
						debs[s.Data.DebateID] = struct{}{}
					}
				}
			}
		}
	}

	return sortedKeys(refs), sortedKeys(debs)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
