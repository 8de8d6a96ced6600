package assistant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrompts(t *testing.T) {
	p := DefaultPrompts()
	assert.Contains(t, p.Base, "AIDA")
	assert.Contains(t, p.Base, "under 200 words")
	assert.NotEmpty(t, p.DocumentsIntro)
	assert.NotEmpty(t, p.CiteSources)
	assert.NotEmpty(t, p.NoDocumentFound)
	assert.NotEmpty(t, p.General)
}

func TestPromptsAugmentedKeepsDocumentsVerbatim(t *testing.T) {
	docs := "[Source: Handbook]\nLine one.\n\n[Source: Policy 1]\nLine  two  "
	got := DefaultPrompts().augmented(docs)
	assert.Contains(t, got, docs)
	assert.Less(t, strings.Index(got, "Keep every answer"), strings.Index(got, docs))
	assert.Less(t, strings.Index(got, docs), strings.Index(got, "cite the specific source"))
}

func TestLoadPrompts(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		p, err := LoadPrompts("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPrompts(), p)
	})

	t.Run("partial override keeps other defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("general: Speak like a veteran principal.\n"), 0o600))

		p, err := LoadPrompts(path)
		require.NoError(t, err)
		assert.Equal(t, "Speak like a veteran principal.", p.General)
		assert.Equal(t, DefaultPrompts().Base, p.Base)
	})

	t.Run("blank base rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base: \"\"\n"), 0o600))

		_, err := LoadPrompts(path)
		assert.ErrorIs(t, err, ErrEmptyBasePrompt)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading prompts file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base: [unclosed\n"), 0o600))
		_, err := LoadPrompts(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing prompts file")
	})
}
