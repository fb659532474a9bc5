package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

func TestBuiltinSeed(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Bookmarks)
	assert.NotEmpty(t, cfg.Notes)

	st := store.New(nil)
	res, err := Apply(st, cfg)
	require.NoError(t, err)
	assert.Equal(t, len(cfg.Bookmarks), res[domain.KindBookmarks])
	assert.Equal(t, "Welcome", st.Notes()[0].Title)
	assert.Equal(t, domain.Kinds, res.Kinds())
}

func TestLoaderFileWithVariables(t *testing.T) {
	t.Setenv("NAS_HOST", "nas.lan")
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
bookmarks:
  - title: NAS
    url: {{ NAS_HOST }}
  - title: Missing
    url: {{UNSET_SEED_VARIABLE}}
todos:
  - text: done already
    completed: true
settings:
  theme: matrix
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Len(t, cfg.Bookmarks, 2)
	assert.Equal(t, "nas.lan", cfg.Bookmarks[0].URL)
	assert.Empty(t, cfg.Bookmarks[1].URL)

	st := store.New(nil)
	res, err := Apply(st, cfg)
	require.Error(t, err, "the bookmark without url is reported")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, res[domain.KindBookmarks])
	assert.Equal(t, "https://nas.lan", st.Bookmarks()[0].URL)
	assert.True(t, st.Todos()[0].Completed)
	assert.Equal(t, "matrix", st.Settings().Theme)
}

func TestApplyKeepsExistingCollections(t *testing.T) {
	st := store.New(nil)
	_, err := st.AddTodo("mine")
	require.NoError(t, err)
	st.SetSettings(domain.Settings{Theme: "cyberpunk", Font: "code"})

	res, err := Apply(st, Config{
		Todos:    []Todo{{Text: "sample"}},
		Notes:    []Note{{Title: "hello", Content: "world"}},
		Settings: &domain.Settings{Theme: "matrix"},
	})
	require.NoError(t, err)
	assert.Zero(t, res[domain.KindTodos])
	assert.Equal(t, 1, res[domain.KindNotes])
	assert.Equal(t, "mine", st.Todos()[0].Text)
	assert.Equal(t, "code", st.Settings().Font, "settings untouched once data exists")
}

func TestLoaderErrors(t *testing.T) {
	_, err := NewLoader("/nonexistent/seed.yaml").Load()
	assert.Error(t, err)

	_, err = Parse([]byte("bookmarks: [oops"))
	assert.Error(t, err)
}
