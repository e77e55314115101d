package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	payload := bytes.Repeat([]byte("x"), 600*1024)
	_, err = w.Write(payload)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)

	// Second write exceeded 1MB, so the first file rotated to .1.
	rotated, err := os.Stat(path + ".1")
	require.NoError(t, err)
	assert.Equal(t, int64(600*1024), rotated.Size())

	current, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(600*1024), current.Size())
}

func TestRotatingWriter_DropsOldestBeyondMaxFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	payload := bytes.Repeat([]byte("y"), 600*1024)
	for i := 0; i < 5; i++ {
		_, err = w.Write(payload)
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".2")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "only maxFiles rotated files are kept")
}

func TestRotatingWriter_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "app.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
