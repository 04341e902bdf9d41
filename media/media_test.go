package media

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"artforge/config"
)

func setupTestStore(t *testing.T) *Store {
	cfg := &config.Config{
		UploadDir:         t.TempDir(),
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "webp"},
	}
	store, err := NewStore(cfg)
	assert.NoError(t, err)
	return store
}

func encodePNG(t *testing.T, width, height int) []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	err := png.Encode(&buf, img)
	assert.NoError(t, err)
	return buf.Bytes()
}

func TestSave_DecodableImage(t *testing.T) {
	store := setupTestStore(t)
	data := encodePNG(t, 120, 80)

	stored, err := store.Save(bytes.NewReader(data), "photo.PNG")
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(stored.Filename, ".png"))
	assert.NotEqual(t, "photo.PNG", stored.Filename)
	assert.Equal(t, int64(len(data)), stored.Size)

	assert.NotNil(t, stored.Width)
	assert.NotNil(t, stored.Height)
	assert.Equal(t, 120, *stored.Width)
	assert.Equal(t, 80, *stored.Height)

	_, err = os.Stat(store.Path(stored.Filename))
	assert.NoError(t, err)
}

func TestSave_UndecodableImageKeepsNilDimensions(t *testing.T) {
	store := setupTestStore(t)

	stored, err := store.Save(strings.NewReader("not an image at all"), "fake.png")
	assert.NoError(t, err)
	assert.Nil(t, stored.Width)
	assert.Nil(t, stored.Height)
}

func TestSave_DisallowedExtension(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Save(strings.NewReader("#!/bin/sh"), "script.sh")
	assert.Error(t, err)

	_, err = store.Save(strings.NewReader("data"), "noextension")
	assert.Error(t, err)
}

func TestSave_OversizeRejected(t *testing.T) {
	cfg := &config.Config{
		UploadDir:         t.TempDir(),
		MaxFileSize:       10,
		AllowedExtensions: []string{"png"},
	}
	store, err := NewStore(cfg)
	assert.NoError(t, err)

	_, err = store.Save(strings.NewReader("way more than ten bytes of content"), "big.png")
	assert.Error(t, err)

	// the partial file does not survive
	entries, err := os.ReadDir(cfg.UploadDir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_UniqueFilenames(t *testing.T) {
	store := setupTestStore(t)

	first, err := store.Save(strings.NewReader("a"), "same.png")
	assert.NoError(t, err)
	second, err := store.Save(strings.NewReader("b"), "same.png")
	assert.NoError(t, err)

	assert.NotEqual(t, first.Filename, second.Filename)
}

func TestRemove(t *testing.T) {
	store := setupTestStore(t)

	stored, err := store.Save(strings.NewReader("bytes"), "gone.png")
	assert.NoError(t, err)

	assert.NoError(t, store.Remove(stored.Filename))
	_, err = os.Stat(filepath.Join(store.Path(stored.Filename)))
	assert.True(t, os.IsNotExist(err))

	// removing a missing file is not an error
	assert.NoError(t, store.Remove("never-existed.png"))
}
