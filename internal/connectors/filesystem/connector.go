// Package filesystem reads guideline files from a local directory and
// watches it for new or rewritten files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/logger"
)

// DefaultDebounce is the quiet period after the last write to a file
// before it is read.
const DefaultDebounce = 500 * time.Millisecond

// DefaultMaxFileSize skips files larger than this.
const DefaultMaxFileSize = 100 << 20

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("connector is closed")

// DefaultExtensions are the file types handed to ingestion.
func DefaultExtensions() []string {
	return []string{".pdf", ".txt", ".text", ".md", ".markdown", ".csv"}
}

// Connector turns files under a root directory into uploads.
type Connector struct {
	rootPath    string
	extensions  map[string]bool
	debounce    time.Duration
	maxFileSize int64

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithExtensions replaces the accepted file extensions.
func WithExtensions(exts ...string) Option {
	return func(c *Connector) {
		c.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			c.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithDebounce sets the quiet period before a changed file is read.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithMaxFileSize skips files above size bytes.
func WithMaxFileSize(size int64) Option {
	return func(c *Connector) {
		if size > 0 {
			c.maxFileSize = size
		}
	}
}

// New creates a connector rooted at rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{
		rootPath:    rootPath,
		debounce:    DefaultDebounce,
		maxFileSize: DefaultMaxFileSize,
	}
	WithExtensions(DefaultExtensions()...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RootPath returns the watched directory.
func (c *Connector) RootPath() string {
	return c.rootPath
}

// Scan reads every accepted file under the root, in path order. Files
// that cannot be read are logged and skipped.
func (c *Connector) Scan(ctx context.Context) ([]domain.Upload, error) {
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != c.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && c.accepts(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.rootPath, err)
	}
	sort.Strings(paths)

	uploads := make([]domain.Upload, 0, len(paths))
	for _, path := range paths {
		upload, err := c.readUpload(path)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			continue
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// Watch emits an upload for every accepted file that is created or
// rewritten under the root, once writes to it have settled. The channel
// is closed when ctx is cancelled or the connector is closed.
// Deletions are not reported.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.Upload, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := c.addTree(fsw, c.rootPath); err != nil {
		fsw.Close()
		return nil, err
	}

	c.mu.Lock()
	c.watcher = fsw
	c.mu.Unlock()

	out := make(chan domain.Upload)
	go c.loop(ctx, fsw, out)
	return out, nil
}

// Close stops any running watch.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func (c *Connector) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- domain.Upload) {
	defer close(out)
	defer fsw.Close()

	pending := make(map[string]*time.Timer)
	ready := make(chan string, 16)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(filepath.Base(event.Name)) {
				if err := c.addTree(fsw, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
				continue
			}
			path, ok := c.handleFsEvent(event)
			if !ok {
				continue
			}
			if t, exists := pending[path]; exists {
				t.Reset(c.debounce)
				continue
			}
			pending[path] = time.AfterFunc(c.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)
			upload, err := c.readUpload(path)
			if err != nil {
				logger.Warn("skipping %s: %v", path, err)
				continue
			}
			select {
			case out <- upload:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher: %v", err)
		}
	}
}

// handleFsEvent returns the path to ingest for a create or write of an
// accepted regular file.
func (c *Connector) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(filepath.Base(event.Name)) || !c.accepts(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

func (c *Connector) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) readUpload(path string) (domain.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Upload{}, err
	}
	if info.Size() > c.maxFileSize {
		return domain.Upload{}, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), c.maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Upload{}, err
	}
	return domain.Upload{FileName: filepath.Base(path), Data: data}, nil
}

func (c *Connector) accepts(path string) bool {
	return c.extensions[strings.ToLower(filepath.Ext(path))]
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}
	return nil
}

// isHidden reports whether a file or directory name starts with a dot.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
