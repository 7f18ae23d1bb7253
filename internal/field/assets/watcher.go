package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the catalog when files under the assets directory change.
// Event bursts are debounced into one reload; a failed reload keeps the
// previous catalog in place.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func(*Catalog)
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// WatchCatalog starts watching dir and its asset subdirectories. onChange is
// called with the freshly loaded catalog after each debounced change burst.
func WatchCatalog(dir string, debounce time.Duration, onChange func(*Catalog)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create catalog watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch assets dir: %w", err)
	}

	// fsnotify is not recursive; cover the existing asset directories too.
	if entries, err := os.ReadDir(dir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				fw.Add(filepath.Join(dir, entry.Name()))
			}
		}
	}

	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		watcher:  fw,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watcher.Add(event.Name)
				}
			}
			w.scheduleReload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	catalog, err := LoadCatalog(w.dir)
	if err != nil {
		return
	}
	w.onChange(catalog)
}

// Close stops the watcher. A reload already scheduled may still fire.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
