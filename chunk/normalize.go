package chunk

import (
	"fmt"
	"sort"
	"strings"
)

// maxCollectDepth bounds how deep CollectStrings descends into nested values.
// Deeper structure is ignored rather than risking unbounded traversal.
const maxCollectDepth = 8

// Normalize collapses all runs of whitespace into single spaces and trims the
// result. Chunk hashing operates on normalized text, so two rows that differ
// only in whitespace layout dedup to one cache entry.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CollectStrings harvests all string values reachable from v, walking maps
// and slices with an iterative worklist bounded by maxCollectDepth. Map keys
// are visited in sorted order so the result is deterministic. Scalar
// non-string leaves are formatted with fmt.
func CollectStrings(v any) []string {
	type item struct {
		value any
		depth int
	}

	var out []string
	work := []item{{value: v, depth: 0}}

	for len(work) > 0 {
		it := work[0]
		work = work[1:]

		if it.depth > maxCollectDepth {
			continue
		}

		switch val := it.value.(type) {
		case nil:
			// skip
		case string:
			if val != "" {
				out = append(out, val)
			}
		case []byte:
			if len(val) > 0 {
				out = append(out, string(val))
			}
		case map[string]any:
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				work = append(work, item{value: val[k], depth: it.depth + 1})
			}
		case []any:
			for _, elem := range val {
				work = append(work, item{value: elem, depth: it.depth + 1})
			}
		case bool:
			// booleans carry no embeddable text
		default:
			out = append(out, fmt.Sprintf("%v", val))
		}
	}

	return out
}
