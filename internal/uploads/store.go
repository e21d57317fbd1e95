// Package uploads stores task attachments on local disk under
// <dir>/<taskID>/<unixMillis>-<sanitized-name>.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"project-management-api/internal/apperr"
	"project-management-api/internal/config"

	"github.com/gabriel-vasile/mimetype"
)

// File describes a stored upload.
type File struct {
	Name     string
	Path     string
	URL      string
	Size     int64
	MimeType string
}

// Store writes uploads to a directory served under URLPrefix.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

// NewStore builds a Store from config.
func NewStore(cfg config.UploadsConfig) *Store {
	return &Store{
		dir:       cfg.Dir,
		urlPrefix: strings.TrimRight(cfg.URLPrefix, "/"),
		maxBytes:  cfg.MaxBytes,
		now:       time.Now,
	}
}

// Dir is the root directory on disk.
func (s *Store) Dir() string { return s.dir }

// URLPrefix is the public path the directory is served under.
func (s *Store) URLPrefix() string { return s.urlPrefix }

// MaxBytes is the largest accepted upload.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// SanitizeFilename keeps letters, digits, dot, dash and underscore; everything
// else becomes an underscore. Path components are stripped.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		out = "file"
	}
	return out
}

// Save copies r into the task's directory. Content beyond the size limit is
// rejected and the partial file removed.
func (s *Store) Save(taskID, filename string, r io.Reader) (*File, error) {
	if taskID == "" || strings.ContainsAny(taskID, `/\.`) {
		return nil, apperr.Invalid("Invalid task id")
	}
	dir := filepath.Join(s.dir, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), SanitizeFilename(filename))
	diskPath := filepath.Join(dir, name)
	dst, err := os.OpenFile(diskPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}

	size, err := io.Copy(dst, io.LimitReader(r, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > s.maxBytes {
		err = apperr.Newf(apperr.KindTooLarge, "File exceeds the %d byte limit", s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(diskPath)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("writing upload: %w", err)
	}

	mime := "application/octet-stream"
	if detected, err := mimetype.DetectFile(diskPath); err == nil {
		mime = detected.String()
	}

	return &File{
		Name:     name,
		Path:     diskPath,
		URL:      path.Join(s.urlPrefix, taskID, name),
		Size:     size,
		MimeType: mime,
	}, nil
}

// Remove deletes the file behind a URL returned by Save. URLs outside the
// store are rejected; a file that is already gone is not an error.
func (s *Store) Remove(url string) error {
	rel, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok {
		return fmt.Errorf("url %q is not served by this store", url)
	}
	rel = path.Clean("/" + rel)[1:]
	if rel == "" || strings.Count(rel, "/") != 1 {
		return fmt.Errorf("url %q does not name a stored file", url)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
