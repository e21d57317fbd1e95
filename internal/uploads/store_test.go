package uploads

import (
	"os"
	"strings"
	"testing"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/config"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "report_final_.pdf", SanitizeFilename("report final!.pdf"))
	require.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	require.Equal(t, "evil.sh", SanitizeFilename(`C:\tmp\evil.sh`))
	require.Equal(t, "htaccess", SanitizeFilename(".htaccess"))
	require.Equal(t, "file", SanitizeFilename(""))
	require.Equal(t, "caf_.txt", SanitizeFilename("café.txt"))
}

func TestSave_WritesUnderTaskDirectory(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(config.UploadsConfig{Dir: dir, URLPrefix: "/uploads/", MaxBytes: 1024})
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	f, err := s.Save("task-1", "notes.txt", strings.NewReader("hello world"))
	require.NoError(t, err)
	require.Equal(t, "1700000000000-notes.txt", f.Name)
	require.Equal(t, "/uploads/task-1/1700000000000-notes.txt", f.URL)
	require.EqualValues(t, 11, f.Size)
	require.True(t, strings.HasPrefix(f.MimeType, "text/plain"))

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestSave_RejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(config.UploadsConfig{Dir: dir, URLPrefix: "/uploads", MaxBytes: 4})

	_, err := s.Save("task-1", "big.bin", strings.NewReader("too large"))
	require.Equal(t, apperr.KindTooLarge, apperr.KindOf(err))

	entries, err := os.ReadDir(dir + "/task-1")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSave_RejectsTraversalInTaskID(t *testing.T) {
	s := NewStore(config.UploadsConfig{Dir: t.TempDir(), URLPrefix: "/uploads", MaxBytes: 4})
	_, err := s.Save("../x", "a.txt", strings.NewReader("a"))
	require.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestRemove_DeletesStoredFile(t *testing.T) {
	s := NewStore(config.UploadsConfig{Dir: t.TempDir(), URLPrefix: "/uploads", MaxBytes: 1024})
	f, err := s.Save("task-1", "a.txt", strings.NewReader("a"))
	require.NoError(t, err)

	require.NoError(t, s.Remove(f.URL))
	_, err = os.Stat(f.Path)
	require.True(t, os.IsNotExist(err))

	// already gone
	require.NoError(t, s.Remove(f.URL))
}

func TestRemove_RejectsForeignURLs(t *testing.T) {
	s := NewStore(config.UploadsConfig{Dir: t.TempDir(), URLPrefix: "/uploads", MaxBytes: 1024})
	require.Error(t, s.Remove("/static/task-1/a.txt"))
	require.Error(t, s.Remove("/uploads/task-1/nested/a.txt"))
	require.Error(t, s.Remove("/uploads/task-1"))
}
