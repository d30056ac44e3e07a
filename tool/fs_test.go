package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fsTools(t *testing.T, opts ...FSOption) (string, map[string]Tool) {
	t.Helper()
	root := t.TempDir()
	byName := make(map[string]Tool)
	for _, tl := range FS(append([]FSOption{WithBasePath(root)}, opts...)...) {
		byName[tl.Name()] = tl
	}
	return root, byName
}

func run(t *testing.T, tl Tool, args map[string]any) (Result, error) {
	t.Helper()
	return tl.Execute(context.Background(), "call", args, nil, Context{})
}

func TestLs(t *testing.T) {
	root, tools := fsTools(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("aa"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), nil, 0o644))

	t.Run("flat", func(t *testing.T) {
		res, err := run(t, tools["ls"], map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "a.txt\nb.txt\nsub/", res.Content[0].Text)
		entries := res.Details.([]Entry)
		require.Len(t, entries, 3)
		assert.Equal(t, int64(2), entries[0].Size)
	})

	t.Run("recursive", func(t *testing.T) {
		res, err := run(t, tools["ls"], map[string]any{"recursive": true})
		require.NoError(t, err)
		assert.Equal(t, "a.txt\nb.txt\nsub/\nsub/c.txt", res.Content[0].Text)
	})

	t.Run("outside base path", func(t *testing.T) {
		_, err := run(t, tools["ls"], map[string]any{"path": "../"})
		assert.ErrorContains(t, err, "outside")
	})
}

func TestLsReportsProgressAndTruncates(t *testing.T) {
	root, tools := fsTools(t, WithMaxEntries(120))
	for i := range 130 {
		require.NoError(t, os.WriteFile(filepath.Join(root, fmt.Sprintf("f%03d", i)), nil, 0o644))
	}

	var updates []Update
	res, err := tools["ls"].Execute(context.Background(), "c", map[string]any{}, func(u Update) { updates = append(updates, u) }, Context{})
	require.NoError(t, err)
	assert.Len(t, res.Details.([]Entry), 120)
	assert.Contains(t, res.Content[0].Text, "[truncated at 120 entries]")
	assert.Equal(t, []Update{{Message: "listed 50 entries"}, {Message: "listed 100 entries"}}, updates)
}

func TestReadWriteEdit(t *testing.T) {
	root, tools := fsTools(t)

	_, err := run(t, tools["write"], map[string]any{"path": "dir/notes.txt", "content": "one\ntwo\nthree\ntwo"})
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(root, "dir", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\ntwo", string(raw))

	res, err := run(t, tools["read"], map[string]any{"path": "dir/notes.txt", "offset": 2, "limit": 2})
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", res.Content[0].Text)

	_, err = run(t, tools["read"], map[string]any{"path": "dir/notes.txt", "offset": 9})
	assert.ErrorContains(t, err, "beyond end of file")

	_, err = run(t, tools["edit"], map[string]any{"path": "dir/notes.txt", "old_text": "two", "new_text": "2"})
	assert.ErrorContains(t, err, "matches 2 times")

	res, err = run(t, tools["edit"], map[string]any{"path": "dir/notes.txt", "old_text": "two", "new_text": "2", "replace_all": true})
	require.NoError(t, err)
	assert.Equal(t, EditDetails{Replacements: 2, LinesBefore: 4, LinesAfter: 4}, res.Details)

	_, err = run(t, tools["edit"], map[string]any{"path": "dir/notes.txt", "old_text": "missing", "new_text": "x"})
	assert.ErrorContains(t, err, "not found")

	raw, err = os.ReadFile(filepath.Join(root, "dir", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\n2\nthree\n2", string(raw))
}

func TestReadRejectsLargeFiles(t *testing.T) {
	root, tools := fsTools(t, WithMaxFileSize(4))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big"), []byte("12345"), 0o644))

	_, err := run(t, tools["read"], map[string]any{"path": "big"})
	assert.ErrorContains(t, err, "exceeds maximum")
}
