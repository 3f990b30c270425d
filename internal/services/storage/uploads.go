package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is where stored uploads are served from.
const URLPrefix = "/uploads/"

// DefaultExt is used when neither the name nor the content type tells us more.
const DefaultExt = ".jpg"

// StoredFile is an upload written under the store directory.
type StoredFile struct {
	Name string // relative, slash separated: 2024-05-01/3f2a...9c.jpg
	Path string // on disk
	Size int64
}

// URL is the public path of the file.
func (f StoredFile) URL() string {
	return URLPrefix + f.Name
}

// UploadStore keeps uploaded images in one folder per UTC day.
type UploadStore struct {
	dir string
	now func() time.Time
}

// NewUploadStore creates a store rooted at dir.
func NewUploadStore(dir string) *UploadStore {
	return &UploadStore{dir: dir, now: time.Now}
}

// Dir returns the root directory.
func (s *UploadStore) Dir() string {
	return s.dir
}

// Save writes data as <dir>/YYYY-MM-DD/<prefix><uuid><ext>.
func (s *UploadStore) Save(data []byte, ext, prefix string) (StoredFile, error) {
	if len(data) == 0 {
		return StoredFile{}, errors.New("empty upload")
	}

	day := s.now().UTC().Format("2006-01-02")
	dayDir := filepath.Join(s.dir, day)
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return StoredFile{}, fmt.Errorf("error creating directory: %w", err)
	}

	name := prefix + strings.ReplaceAll(uuid.NewString(), "-", "") + normalizeExt(ext)
	fullpath := filepath.Join(dayDir, name)
	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return StoredFile{}, fmt.Errorf("error saving upload %s: %w", name, err)
	}

	return StoredFile{Name: path.Join(day, name), Path: fullpath, Size: int64(len(data))}, nil
}

// Resolve maps a relative name to its path on disk. Names escaping the
// store directory are rejected.
func (s *UploadStore) Resolve(name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean[1:])), nil
}

// Remove deletes one stored file. A missing file is not an error.
func (s *UploadStore) Remove(name string) error {
	p, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Clear deletes every stored file and day folder.
func (s *UploadStore) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to read upload directory: %w", err)
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("error deleting %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Walk calls fn for every stored file, oldest day first.
func (s *UploadStore) Walk(fn func(StoredFile) error) error {
	return filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.dir {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		return fn(StoredFile{Name: filepath.ToSlash(rel), Path: p, Size: info.Size()})
	})
}

// ExtFromFilename returns the lower-case extension of name, or DefaultExt.
func ExtFromFilename(name string) string {
	return normalizeExt(filepath.Ext(name))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}
