package migrate

import (
	"fmt"
	"strings"

	"github.com/semaphoric/vecmig/chunk"
	"github.com/semaphoric/vecmig/core"
)

// extractContent concatenates the configured content columns of a record
// into one normalized string. Nested values (arrays, JSON objects) are
// flattened in a stable order.
func extractContent(record core.SourceRecord, spec core.SourceSpec) string {
	var parts []string
	for _, col := range spec.ContentColumns {
		v, ok := record.Fields[col]
		if !ok || v == nil {
			continue
		}
		parts = append(parts, chunk.CollectStrings(v)...)
	}
	return chunk.Normalize(strings.Join(parts, " "))
}

// extractTitle returns the record's title column as a plain string,
// or "" when the spec names no title column.
func extractTitle(record core.SourceRecord, spec core.SourceSpec) string {
	if spec.TitleColumn == "" {
		return ""
	}
	v, ok := record.Fields[spec.TitleColumn]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return chunk.Normalize(s)
	}
	return chunk.Normalize(fmt.Sprintf("%v", v))
}

// extractMetadata copies the configured metadata columns into a map
// carried verbatim onto every chunk of the record.
func extractMetadata(record core.SourceRecord, spec core.SourceSpec) map[string]string {
	if len(spec.MetadataColumns) == 0 {
		return nil
	}
	meta := make(map[string]string, len(spec.MetadataColumns))
	for _, col := range spec.MetadataColumns {
		v, ok := record.Fields[col]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr {
			meta[col] = s
		} else {
			meta[col] = fmt.Sprintf("%v", v)
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
