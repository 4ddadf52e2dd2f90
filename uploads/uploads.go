package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Store keeps uploaded audio under one directory: short-lived temp files
// that exist only for the duration of a transcription, and an archive of
// raw recordings kept for later inspection.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// SaveTemp writes audio to a throwaway file named after the request.
// The caller removes it once transcription is done.
func (s *Store) SaveTemp(id string, r io.Reader) (string, error) {
	return s.write(fmt.Sprintf("temp_audio_%s.webm", id), r)
}

// Save archives audio under the given name.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	return s.write(name, r)
}

// Remove deletes a stored file, tolerating files already gone.
func (s *Store) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing upload: %w", err)
	}
	return nil
}

// TimestampName builds the archive name for a recording uploaded at the
// given moment. The extension defaults to .webm, the format browsers
// record in.
func TimestampName(ext string, now time.Time) string {
	if ext == "" {
		ext = ".webm"
	}
	return "audio_" + now.Format("20060102_150405") + ext
}

func (s *Store) write(name string, r io.Reader) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", fmt.Errorf("unsafe upload name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("error writing upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error closing upload: %w", err)
	}
	return path, nil
}
