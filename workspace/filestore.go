package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of fsnotify events an editor or a
// deployment sync emits per document into a single reload.
const reloadDebounce = 250 * time.Millisecond

// FileStore serves workspaces from a directory of <workspace-id>.json
// documents. The directory is read once at construction; Watch starts an
// fsnotify loop that reloads it when documents are added, changed, or
// removed, so workspace registrations can be rolled out without
// restarting the gateway.
type FileStore struct {
	dir string

	watchOnce sync.Once

	mu  sync.RWMutex
	all map[string]Workspace
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads every *.json document under dir. Documents that do
// not parse are skipped; an unreadable directory is fatal.
func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{dir: dir}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Watch starts the reload loop. It runs until ctx is done. Repeat calls
// are no-ops; the loop is started at most once per FileStore. The
// directory watch is registered before Watch returns, so changes made
// afterwards are never missed.
func (s *FileStore) Watch(ctx context.Context) {
	s.watchOnce.Do(func() {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Debug("fsnotify unavailable", slog.String("err", err.Error()))
			return
		}
		if err := w.Add(s.dir); err != nil {
			slog.Debug("fsnotify add dir failed", slog.String("err", err.Error()))
			_ = w.Close()
			return
		}
		go s.runWatcher(ctx, w)
	})
}

func (s *FileStore) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &ws, nil
}

func (s *FileStore) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("workspace: read dir: %w", err)
	}
	next := make(map[string]Workspace, len(entries))
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, ent.Name()))
		if err != nil {
			slog.Debug("workspace document unreadable", slog.String("file", ent.Name()), slog.String("err", err.Error()))
			continue
		}
		var ws Workspace
		if err := json.Unmarshal(raw, &ws); err != nil {
			slog.Debug("workspace document invalid", slog.String("file", ent.Name()), slog.String("err", err.Error()))
			continue
		}
		if ws.ID == "" {
			ws.ID = strings.TrimSuffix(ent.Name(), ".json")
		}
		next[ws.ID] = ws
	}
	s.mu.Lock()
	s.all = next
	s.mu.Unlock()
	return nil
}

func (s *FileStore) runWatcher(ctx context.Context, w *fsnotify.Watcher) {
	defer func() {
		// Best-effort watcher close; no actionable error handling path.
		_ = w.Close()
	}()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(ev.Name) != ".json" {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
				fire = debounce.C
				continue
			}
			if !debounce.Stop() {
				select {
				case <-fire:
				default:
				}
			}
			debounce.Reset(reloadDebounce)
		case <-fire:
			if err := s.reload(); err != nil {
				slog.Debug("workspace reload failed", slog.String("err", err.Error()))
				continue
			}
			slog.Debug("workspace reload ok")
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Debug("fsnotify error", slog.String("err", err.Error()))
		}
	}
}
