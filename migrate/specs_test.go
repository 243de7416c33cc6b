package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaphoric/vecmig/chunk"
	"github.com/semaphoric/vecmig/core"
)

func writeSpecs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specs.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSpecs(t *testing.T) {
	path := writeSpecs(t, `[
		{
			"table": "articles",
			"idColumn": "id",
			"titleColumn": "title",
			"contentColumns": ["body", "summary"],
			"metadataColumns": ["author"],
			"chunkSize": 1500
		},
		{
			"table": "comments",
			"idColumn": "id",
			"contentColumns": ["text"]
		}
	]`)

	specs, err := LoadSpecs(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "articles", specs[0].Table)
	assert.Equal(t, []string{"body", "summary"}, specs[0].ContentColumns)
	assert.Equal(t, 1500, specs[0].ChunkSize)

	// Missing chunk size falls back to the default.
	assert.Equal(t, chunk.DefaultMaxChars, specs[1].ChunkSize)
}

func TestLoadSpecs_MissingFile(t *testing.T) {
	_, err := LoadSpecs(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSpecs_InvalidJSON(t *testing.T) {
	path := writeSpecs(t, `{not json`)
	_, err := LoadSpecs(path)
	assert.Error(t, err)
}

func TestLoadSpecs_Empty(t *testing.T) {
	path := writeSpecs(t, `[]`)
	_, err := LoadSpecs(path)
	assert.ErrorIs(t, err, ErrNoSpecs)
}

func TestLoadSpecs_InvalidSpec(t *testing.T) {
	path := writeSpecs(t, `[{"table": "articles", "idColumn": "id"}]`)
	_, err := LoadSpecs(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "articles")
}

func TestFilterSpecs(t *testing.T) {
	specs := []core.SourceSpec{
		{Table: "articles"},
		{Table: "comments"},
		{Table: "pages"},
	}

	all, err := FilterSpecs(specs, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := FilterSpecs(specs, []string{"pages", "articles"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "pages", some[0].Table)
	assert.Equal(t, "articles", some[1].Table)

	_, err = FilterSpecs(specs, []string{"unknown"})
	assert.Error(t, err)
}
