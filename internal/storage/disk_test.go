package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskPutExistsDelete(t *testing.T) {
	root := t.TempDir()
	disk := NewDisk(root, "http://localhost:8080/storage/")

	require.NoError(t, disk.Put("avatars/a.png", strings.NewReader("png")))
	assert.True(t, disk.Exists("avatars/a.png"))

	data, err := os.ReadFile(filepath.Join(root, "avatars", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, disk.Delete("avatars/a.png"))
	assert.False(t, disk.Exists("avatars/a.png"))
	assert.NoError(t, disk.Delete("avatars/a.png"))
}

func TestDiskStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	disk := NewDisk(filepath.Join(root, "public"), "http://localhost/storage")

	require.NoError(t, disk.Put("../../escape.txt", strings.NewReader("x")))
	assert.FileExists(t, filepath.Join(root, "public", "escape.txt"))

	assert.ErrorIs(t, disk.Put("", strings.NewReader("x")), ErrInvalidPath)
	assert.ErrorIs(t, disk.Put(`..\evil`, strings.NewReader("x")), ErrInvalidPath)
}

func TestDiskURL(t *testing.T) {
	disk := NewDisk("/srv", "https://shop.test/storage/")
	assert.Equal(t, "https://shop.test/storage/avatars/x.jpg", disk.URL("avatars/x.jpg"))
	assert.Equal(t, "https://shop.test/storage/avatars/x.jpg", disk.URL("/avatars/x.jpg"))
}
