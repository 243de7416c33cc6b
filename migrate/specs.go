package migrate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/semaphoric/vecmig/chunk"
	"github.com/semaphoric/vecmig/core"
)

// LoadSpecs reads source table specifications from a JSON file.
// Each spec is validated and missing chunk sizes are defaulted.
func LoadSpecs(path string) ([]core.SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read specs file: %w", err)
	}

	var specs []core.SourceSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse specs file: %w", err)
	}

	if len(specs) == 0 {
		return nil, ErrNoSpecs
	}

	for i := range specs {
		if specs[i].ChunkSize <= 0 {
			specs[i].ChunkSize = chunk.DefaultMaxChars
		}
		if err := core.ValidateSourceSpec(&specs[i]); err != nil {
			return nil, fmt.Errorf("spec %d (%s): %w", i, specs[i].Table, err)
		}
	}

	return specs, nil
}

// FilterSpecs returns the specs whose table is in tables. An empty
// tables slice selects all specs. Unknown table names are an error.
func FilterSpecs(specs []core.SourceSpec, tables []string) ([]core.SourceSpec, error) {
	if len(tables) == 0 {
		return specs, nil
	}

	byTable := make(map[string]core.SourceSpec, len(specs))
	for _, s := range specs {
		byTable[s.Table] = s
	}

	selected := make([]core.SourceSpec, 0, len(tables))
	for _, t := range tables {
		s, ok := byTable[t]
		if !ok {
			return nil, fmt.Errorf("no spec for table %q", t)
		}
		selected = append(selected, s)
	}

	return selected, nil
}
