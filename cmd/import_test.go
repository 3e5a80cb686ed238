package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("bbb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	assets, err := localImages(dir)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "a.jpg", assets[0].Filename)
	assert.Equal(t, "b.png", assets[1].Filename)
	assert.Equal(t, int64(3), assets[1].Size)
	assert.Equal(t, "image/png", assets[1].DetectContentType())

	rc, err := assets[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "bbb", string(data))
}

func TestLocalImagesEmptyDir(t *testing.T) {
	assets, err := localImages("")
	require.NoError(t, err)
	assert.Nil(t, assets)

	_, err = localImages(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
