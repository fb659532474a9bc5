package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare host gets https", in: "github.com", want: "https://github.com"},
		{name: "keeps explicit scheme", in: "http://localhost:8080/x", want: "http://localhost:8080/x"},
		{name: "trims spaces", in: "  example.org/path ", want: "https://example.org/path"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   ", wantErr: true},
		{name: "space in host", in: "not a url", wantErr: true},
		{name: "scheme without host", in: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequireText(t *testing.T) {
	got, err := RequireText("title", "  Git ")
	require.NoError(t, err)
	assert.Equal(t, "Git", got)

	_, err = RequireText("title", "\t\n")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSettingsNormalize(t *testing.T) {
	assert.Equal(t, DefaultSettings(), Settings{}.Normalize())
	assert.Equal(t, Settings{Theme: "matrix", Font: "mono"}, Settings{Theme: "matrix", Font: "comic"}.Normalize())
	assert.Equal(t, Settings{Theme: "cyberpunk", Font: "inter"}, Settings{Theme: "neon", Font: "inter"}.Normalize())
}

func TestParseKindAndProvider(t *testing.T) {
	k, err := ParseKind("notes")
	require.NoError(t, err)
	assert.Equal(t, KindNotes, k)

	_, err = ParseKind("widgets")
	assert.ErrorIs(t, err, ErrValidation)

	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderNone, p)

	p, err = ParseProvider("cloud-drive")
	require.NoError(t, err)
	assert.Equal(t, ProviderCloudDrive, p)

	_, err = ParseProvider("dropbox")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCleanBookmarksRejectsBatch(t *testing.T) {
	got, err := CleanBookmarks([]Bookmark{{ID: 1, Title: " Git ", URL: "github.com"}})
	require.NoError(t, err)
	assert.Equal(t, []Bookmark{{ID: 1, Title: "Git", URL: "https://github.com"}}, got)

	_, err = CleanBookmarks([]Bookmark{
		{ID: 7, Title: "", URL: "example.org"},
		{ID: 8, Title: "ok", URL: "not a url"},
		{ID: 9, Title: "fine", URL: "go.dev"},
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "bookmark 0")
	assert.Contains(t, err.Error(), "bookmark 1")
	assert.NotContains(t, err.Error(), "bookmark 2")
}

func TestCleanNotesAndTodos(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	notes, err := CleanNotes([]Note{{ID: 1, Title: "t", CreatedAt: created, UpdatedAt: created.Add(-time.Hour)}})
	require.NoError(t, err)
	assert.True(t, notes[0].UpdatedAt.Equal(created))
	assert.Empty(t, notes[0].Content)

	_, err = CleanNotes([]Note{{ID: 2, Title: "  "}})
	assert.ErrorIs(t, err, ErrValidation)

	todos, err := CleanTodos([]Todo{{ID: 3, Text: " x "}})
	require.NoError(t, err)
	assert.Equal(t, "x", todos[0].Text)

	_, err = CleanTodos([]Todo{{ID: 4}})
	assert.ErrorIs(t, err, ErrValidation)
}
