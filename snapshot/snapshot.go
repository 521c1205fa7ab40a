// Package snapshot persists rendered markup to disk.
//
// Writes are atomic: the markup goes to a temporary file in the destination
// directory which is then renamed over the target, so readers observe either
// the previous snapshot or the new one, never a partial file.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/use-agent/pagesnap/models"
)

// DefaultFileName is the snapshot file name used when none is given.
const DefaultFileName = "output.html"

const filePerm os.FileMode = 0o644

// Path composes the snapshot path from an output directory and file name.
//
// An empty name selects DefaultFileName. The name must be a bare file name.
// An empty dir yields the name alone, relative to the working directory;
// otherwise the two are joined with separators normalised, so "/tmp/snap/"
// and "/tmp/snap" both give "/tmp/snap/output.html".
func Path(dir, name string) (string, error) {
	if name == "" {
		name = DefaultFileName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", models.NewCaptureError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("snapshot name %q must be a plain file name", name),
			nil,
		)
	}
	if dir == "" {
		return name, nil
	}
	return filepath.Join(dir, name), nil
}

// Digest returns the hex SHA-256 of markup.
func Digest(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}

// Writer writes snapshots through an afero filesystem.
type Writer struct {
	fs         afero.Fs
	createDirs bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithCreateDirs makes Write create missing parent directories.
func WithCreateDirs(create bool) Option {
	return func(w *Writer) { w.createDirs = create }
}

// NewWriter returns a Writer backed by fs. A nil fs means the OS filesystem.
func NewWriter(fs afero.Fs, opts ...Option) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	w := &Writer{fs: fs}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write replaces the file at path with markup.
//
// Any existing file is fully overwritten. On failure the temporary file is
// removed and the previous content, if any, is left in place.
func (w *Writer) Write(path, markup string) error {
	if path == "" {
		return models.NewCaptureError(models.ErrCodeWrite, "empty snapshot path", nil)
	}

	dir := filepath.Dir(path)
	if w.createDirs {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return writeError(path, "create output directory", err)
		}
	}

	tmp, err := afero.TempFile(w.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return writeError(path, "create temporary file", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = w.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(markup); err != nil {
		_ = tmp.Close()
		return writeError(path, "write snapshot", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return writeError(path, "sync snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return writeError(path, "close snapshot", err)
	}
	if err := w.fs.Chmod(tmpName, filePerm); err != nil {
		return writeError(path, "set snapshot permissions", err)
	}
	if err := w.fs.Rename(tmpName, path); err != nil {
		return writeError(path, "replace snapshot", err)
	}
	committed = true
	return nil
}

// Read returns the snapshot stored at path.
func (w *Writer) Read(path string) (string, error) {
	b, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return "", models.NewCaptureError(models.ErrCodeInvalidInput, "cannot read snapshot "+path, err)
	}
	return string(b), nil
}

func writeError(path, step string, err error) *models.CaptureError {
	return models.NewCaptureError(models.ErrCodeWrite, fmt.Sprintf("%s %s", step, path), err)
}
