package track

import "strings"

// maxIDs is how many foreign ids a track remembers, youngest first.
const maxIDs = 5

// originOf splits a full track identifier "collection-identifier/ident"
// into its origin part. An id without a slash has no known origin.
func originOf(id string) string {
	idx := strings.LastIndex(id, "/")
	if idx < 0 {
		return ""
	}
	return id[:idx]
}

// CleanIDs removes redundancies from a newest-first id list:
// exact duplicates are collapsed, for directory origins only the youngest
// id per distinct URL survives, and only the 5 youngest ids are kept.
func CleanIDs(original []string) []string {
	var result []string
	seenID := make(map[string]bool)
	seenDirectory := make(map[string]bool)
	for _, id := range original {
		if seenID[id] {
			continue
		}
		seenID[id] = true
		origin := originOf(id)
		if strings.HasPrefix(origin, "directory:") {
			if seenDirectory[origin] {
				continue
			}
			seenDirectory[origin] = true
		}
		result = append(result, id)
	}
	if len(result) > maxIDs {
		result = result[:maxIDs]
	}
	return result
}
