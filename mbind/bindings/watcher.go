package bindings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// reloadDelay lets the game finish writing before we read
const reloadDelay = 250 * time.Millisecond

// Watcher reloads a profile when the game rewrites its actionmaps file
type Watcher struct {
	filename string
	profile  *Profile
	log      *common.Logger
	watcher  *fsnotify.Watcher

	// OnReload is called after every successful reload
	OnReload func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the directory holding filename. Editors and the game
// replace the file rather than writing in place, so the file itself can't
// be watched.
func NewWatcher(filename string, profile *Profile, log *common.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(filename)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{filename: filepath.Clean(filename), profile: profile, log: log, watcher: fw}, nil
}

// Run handles events until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Err("watching %s: %s", w.filename, err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDelay, w.Reload)
}

// Reload reads the file now. A file that fails to parse leaves the
// current bindings in place.
func (w *Watcher) Reload() {
	data, err := os.ReadFile(w.filename)
	if err != nil {
		w.log.Err("reloading %s: %s", w.filename, err)
		return
	}
	doc, err := parseDocument(data, w.log)
	if err != nil {
		w.log.Err("reloading %s: %s", w.filename, err)
		return
	}
	w.profile.replace(doc)
	w.log.Msg("Reloaded action maps from %s", w.filename)
	if w.OnReload != nil {
		w.OnReload()
	}
}
