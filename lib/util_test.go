package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStem(t *testing.T) {
	assert.Equal(t, "cam1", FileStem("cam1.mp4"))
	assert.Equal(t, "cam1", FileStem("cam1.part2.mp4"))
	assert.Equal(t, "noext", FileStem("noext"))
}

func TestListVideos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.avi", "c.mkv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frames"), 0755))

	fnames, err := ListVideos(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.avi", "b.mp4", "c.mkv"}, fnames)

	_, err = ListVideos(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
