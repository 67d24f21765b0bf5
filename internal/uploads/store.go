// Package uploads keeps uploaded document files on local disk.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxUploadBytes = 10 << 20

var ErrTooLarge = errors.New("file exceeds upload limit")

type Store struct {
	dir       string
	publicURL string
}

type Stored struct {
	Key  string
	URL  string
	Size int64
}

func New(dir, publicURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Save writes r under a fresh random key that keeps the original extension.
func (s *Store) Save(originalName string, r io.Reader) (Stored, error) {
	key := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	path := filepath.Join(s.dir, key)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return Stored{}, err
	}
	return Stored{Key: key, URL: s.publicURL + "/uploads/" + key, Size: n}, nil
}

func (s *Store) Remove(key string) error {
	if key == "" || key != filepath.Base(key) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

var ErrNotStored = errors.New("file not stored")

// Serve writes the stored file named by key. Access checks belong to the caller.
func (s *Store) Serve(w http.ResponseWriter, r *http.Request, key string) error {
	if key == "" || key != filepath.Base(key) {
		return ErrNotStored
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotStored
	}
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat upload: %w", err)
	}
	http.ServeContent(w, r, key, fi.ModTime(), f)
	return nil
}
