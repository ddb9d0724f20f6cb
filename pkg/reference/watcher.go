package reference

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
)

// Watcher reloads a PackProvider when pack files change on disk, so
// references can be updated mid-session without a restart.
type Watcher struct {
	provider *PackProvider
	watcher  *fsnotify.Watcher
	done     chan struct{}
	l        *log.Logger
}

func NewWatcher(provider *PackProvider) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(provider.dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{
		provider: provider,
		watcher:  fsw,
		done:     make(chan struct{}),
		l:        log.Default().Named("refwatch"),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
				event.Op.Has(fsnotify.Remove) {
				w.l.Info("reference pack changed", log.String("file", event.Name))
				if err := w.provider.Reload(); err != nil {
					w.l.Error("reload failed", log.ErrorField(err))
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.l.Error("watch error", log.ErrorField(err))
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
