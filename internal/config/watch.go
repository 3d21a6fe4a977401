package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the
// new Chat section to the callback. Other sections need a restart.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(Chat)

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// Watch starts watching path. The directory is watched rather than the
// file so editors that replace the file on save are still seen.
func Watch(path string, onChange func(Chat)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		onChange: onChange,
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.closed:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CONFIG: watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadPartial(w.path)
	if err != nil {
		log.Printf("CONFIG: reload %s: %v", w.path, err)
		return
	}
	if cfg.Chat.TypingTTLSec < 0 {
		log.Printf("CONFIG: reload %s: chat.typing_ttl_seconds must be >= 0", w.path)
		return
	}
	log.Printf("CONFIG: reloaded %s", w.path)
	w.onChange(cfg.Chat)
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}
