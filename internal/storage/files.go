// Package storage keeps uploaded documents on local disk. Filenames are the
// document identity across the whole service: the same name keys the file
// here and the source tag in the vector index.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// FileInfo describes one stored document.
type FileInfo struct {
	Name     string    `json:"filename"`
	Size     int64     `json:"size_bytes"`
	Uploaded time.Time `json:"uploaded_at"`
}

// Store is a flat directory of uploaded documents.
type Store struct {
	dir string
}

// New creates the upload directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes src to the store under filename, overwriting any previous
// version, and returns the on-disk path and byte size.
func (s *Store) Save(filename string, src io.Reader) (string, int64, error) {
	name, err := sanitize(filename)
	if err != nil {
		return "", 0, err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", name, err)
	}

	size, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", name, err)
	}

	return path, size, nil
}

// Path returns the on-disk path for a stored document.
func (s *Store) Path(filename string) (string, error) {
	name, err := sanitize(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Exists reports whether a document is stored under filename.
func (s *Store) Exists(filename string) bool {
	path, err := s.Path(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete removes a stored document. A missing file returns
// domain.ErrDocumentNotFound.
func (s *Store) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filename, domain.ErrDocumentNotFound)
		}
		return fmt.Errorf("remove %s: %w", filename, err)
	}
	return nil
}

// List returns stored documents sorted by name.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Uploaded: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// sanitize strips any path components and rejects names that cannot identify
// a document. Uploads never choose where on disk they land.
func sanitize(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return name, nil
}
