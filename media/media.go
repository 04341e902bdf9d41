package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"artforge/common"
	"artforge/config"
)

// StoredImage describes a persisted upload. Width and Height are nil when the
// file is not a decodable image; that is not a failure.
type StoredImage struct {
	Filename string
	Width    *int
	Height   *int
	Size     int64
}

// Store writes uploads under a configured directory with generated filenames.
// The original filename is only used for its extension.
type Store struct {
	dir         string
	maxFileSize int64
	cfg         *config.Config
}

func NewStore(cfg *config.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: cfg.UploadDir, maxFileSize: cfg.MaxFileSize, cfg: cfg}, nil
}

// Save writes the upload to disk and probes its dimensions. The file is on
// disk before the caller commits any database row referencing it; a file that
// never gets a row is acceptable garbage.
func (s *Store) Save(src io.Reader, originalName string) (*StoredImage, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if !s.cfg.ExtensionAllowed(ext) {
		return nil, common.Invalid(fmt.Sprintf("file type %q is not allowed", ext))
	}

	filename := uuid.New().String() + "." + ext
	path := filepath.Join(s.dir, filename)

	out, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	written, err := io.Copy(out, io.LimitReader(src, s.maxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if written > s.maxFileSize {
		os.Remove(path)
		return nil, common.Invalid("file exceeds the maximum upload size")
	}

	stored := &StoredImage{Filename: filename, Size: written}
	if w, h, ok := probeDimensions(path); ok {
		stored.Width = &w
		stored.Height = &h
	}
	return stored, nil
}

// Remove deletes a stored file. Missing files are fine: the database row is
// authoritative and disk cleanup is best effort.
func (s *Store) Remove(filename string) error {
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

func probeDimensions(path string) (width, height int, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
