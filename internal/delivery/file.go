// Package delivery hands finished export documents to their destination.
package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"shinobi/internal/export"
)

// File saves a document under Dir using the document's filename, then
// previews it on Preview. The save replaces any previous file atomically.
type File struct {
	Dir          string
	Preview      io.Writer
	PreviewLines int
	Logger       *zap.Logger

	mu       sync.Mutex
	lastPath string
}

var _ export.Delivery = (*File)(nil)

func (f *File) Deliver(ctx context.Context, doc export.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.Filename == "" || filepath.Base(doc.Filename) != doc.Filename {
		return errors.Newf("invalid filename %q", doc.Filename)
	}
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, doc.Filename)
	if err := writeAtomic(path, []byte(doc.Body)); err != nil {
		return err
	}
	f.mu.Lock()
	f.lastPath = path
	f.mu.Unlock()
	log := f.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("export saved", zap.String("path", path), zap.String("export_id", doc.ExportID))
	// Saved already; preview errors are only logged.
	if f.Preview != nil {
		if err := writePreview(f.Preview, doc.Body, f.PreviewLines); err != nil {
			log.Warn("write preview", zap.Error(err))
		}
	}
	return nil
}

// LastPath returns where the most recent document was saved.
func (f *File) LastPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	return errors.Wrapf(os.Rename(tmpName, path), "rename to %s", path)
}

// writePreview writes the first n lines of body, or all of it when n <= 0.
func writePreview(w io.Writer, body string, n int) error {
	lines := strings.Split(body, "\n")
	if n <= 0 || len(lines) <= n {
		_, err := io.WriteString(w, strings.TrimRight(body, "\n")+"\n")
		return err
	}
	if _, err := io.WriteString(w, strings.Join(lines[:n], "\n")+"\n"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "... (%d líneas más)\n", len(lines)-n)
	return err
}
