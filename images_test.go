package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageOverlayLifecycle(t *testing.T) {
	o := newImageOverlay()

	o.Begin("p1", []string{"a.jpg", "b.jpg"})
	assert.True(t, o.Uploading("p1"))
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, o.Previews("p1"))
	assert.False(t, o.Uploading("p2"))

	o.Finish("p1")
	assert.False(t, o.Uploading("p1"))
	assert.Empty(t, o.Previews("p1"))
}

func TestImageOverlayFinishClearsOnFailureToo(t *testing.T) {
	o := newImageOverlay()
	o.Begin("p1", []string{"a.jpg"})
	// The caller clears regardless of upload outcome; the persisted
	// image list is the only source of truth afterwards.
	o.Finish("p1")
	assert.Empty(t, o.Previews("p1"))
}

func TestExpandImageFilesSkipsMissingAndDirs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(file, []byte("img"), 0o644))

	out := expandImageFiles([]string{file, filepath.Join(dir, "missing.jpg"), dir})
	assert.Equal(t, []string{file}, out)
}

func TestBestPhotoIndexPicksLargestFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.jpg")
	big := filepath.Join(dir, "big.jpg")
	require.NoError(t, os.WriteFile(small, []byte("xx"), 0o644))
	require.NoError(t, os.WriteFile(big, make([]byte, 4096), 0o644))

	assert.Equal(t, 1, bestPhotoIndex([]string{small, big}))
	assert.Equal(t, 0, bestPhotoIndex([]string{big, small}))
}

func TestBestPhotoIndexUnreadableKeepsFirst(t *testing.T) {
	assert.Equal(t, 0, bestPhotoIndex([]string{"nope.jpg", "also-nope.jpg"}))
}

func TestPromoteImage(t *testing.T) {
	images := []string{"a", "b", "c", "d"}

	assert.Equal(t, []string{"c", "a", "b", "d"}, promoteImage(images, 2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, promoteImage(images, 0))
	assert.Equal(t, []string{"a", "b", "c", "d"}, promoteImage(images, 9))
}

func TestRunUploadReportsProgressAndResult(t *testing.T) {
	dir := t.TempDir()
	store, err := openCatalogStore(dir)
	require.NoError(t, err)
	defer store.Close()

	src := filepath.Join(dir, "src.jpg")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	ch := make(chan uploadEvent)
	go runUpload(store, "p1", []string{src}, 0, ch)

	var finished uploadFinishedMsg
	sawProgress := false
	for ev := range ch {
		switch ev := ev.(type) {
		case uploadProgressMsg:
			sawProgress = true
			assert.Equal(t, "p1", ev.productID)
		case uploadFinishedMsg:
			finished = ev
		}
	}
	assert.True(t, sawProgress)
	require.NoError(t, finished.err)
	require.Len(t, finished.urls, 1)
	assert.FileExists(t, finished.urls[0])
}

func TestRunUploadFailureStillFinishes(t *testing.T) {
	dir := t.TempDir()
	store, err := openCatalogStore(dir)
	require.NoError(t, err)
	defer store.Close()

	ch := make(chan uploadEvent)
	go runUpload(store, "p1", []string{filepath.Join(dir, "missing.jpg")}, 0, ch)

	var finished *uploadFinishedMsg
	for ev := range ch {
		if f, ok := ev.(uploadFinishedMsg); ok {
			finished = &f
		}
	}
	require.NotNil(t, finished)
	assert.Error(t, finished.err)
}
