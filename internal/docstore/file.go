package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/remote"
)

// File stores the document as pretty-printed JSON on disk and keeps a cached
// copy. Watch picks up edits made to the file by other programs.
type File struct {
	path   string
	logger logger.Logger
	now    func() time.Time

	mu     sync.RWMutex
	doc    remote.Document
	closed bool
}

// OpenFile reads path if it exists. A missing file is not created until the
// first Save.
func OpenFile(path string, log logger.Logger) (*File, error) {
	if log == nil {
		log = logger.Nop()
	}
	f := &File{path: path, logger: log.Named("docstore"), now: time.Now}
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	f.doc = doc
	return f, nil
}

// Path returns the location of the JSON file.
func (f *File) Path() string { return f.path }

func (f *File) Load(context.Context) (remote.Document, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return remote.Document{}, ErrClosed
	}
	return clone(f.doc)
}

func (f *File) Save(_ context.Context, doc remote.Document) (remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return remote.Document{}, ErrClosed
	}

	doc = prepare(doc, f.now())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return remote.Document{}, fmt.Errorf("encode document: %w", err)
	}
	if err := f.write(data); err != nil {
		return remote.Document{}, err
	}
	stored, err := clone(doc)
	if err != nil {
		return remote.Document{}, err
	}
	f.doc = stored
	return clone(stored)
}

func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Watch reloads the cached document whenever the file changes on disk, until
// ctx is done. Unreadable content is logged and the previous copy is kept.
func (f *File) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// watch the directory so atomic renames are seen
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	f.logger.Info("watching data file", logger.String("path", f.path))

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			f.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("data file watcher error", logger.Error(err))
		}
	}
}

func (f *File) reload() {
	doc, err := f.read()
	if err != nil {
		f.logger.Warn("data file changed but could not be read, keeping previous copy", logger.Error(err))
		return
	}
	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
	f.logger.Debug("data file reloaded", logger.Time("last_updated", doc.LastUpdated))
}

func (f *File) read() (remote.Document, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return remote.Document{}.Defaults(), nil
	}
	if err != nil {
		return remote.Document{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return remote.Document{}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return doc.Defaults(), nil
}

func (f *File) write(data []byte) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
