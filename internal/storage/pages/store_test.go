package pages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreSaveRoundTrip writes a page and reads it back from the returned
// path.
func TestStoreSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "pages")
	s, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	path, err := s.Save(context.Background(), "finance-abc123.html", []byte("<html>hi</html>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "finance-abc123.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>hi</html>", string(data))
}

// TestStoreRejectsTraversal asserts filenames cannot escape the store
// directory.
func TestStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "../escape.html", []byte("x"))
	assert.Error(t, err)

	_, err = s.Save(context.Background(), "", []byte("x"))
	assert.Error(t, err)
}

// TestStoreRejectsFileAsDir asserts New fails when the path is a file.
func TestStoreRejectsFileAsDir(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New(file)
	assert.Error(t, err)
}

// TestStoreSaveHonorsCancellation asserts a dead context prevents the write.
func TestStoreSaveHonorsCancellation(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Save(ctx, "page.html", []byte("x"))
	assert.Error(t, err)
}
