// Package watcher provides file system watching with debouncing for the
// backend's image output directory.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/easel-dev/easel/internal/log"
	"github.com/easel-dev/easel/internal/pubsub"
)

// EventType distinguishes watcher notifications.
type EventType int

const (
	// OutputChanged fires after new images land in the output directory
	// and the debounce window has passed.
	OutputChanged EventType = iota
	// WatcherError reports a filesystem watcher failure. Watching
	// continues.
	WatcherError
)

// WatcherEvent is published on the broker for each notification.
type WatcherEvent struct {
	Type EventType
	Path string // last image path that triggered the change
	Err  error
}

// Watcher monitors the output directory for freshly written images and
// publishes debounced change events.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	debounce  time.Duration
	broker    *pubsub.Broker[WatcherEvent]
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Dir         string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		DebounceDur: 1 * time.Second,
	}
}

// New creates a new output directory watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		dir:       cfg.Dir,
		debounce:  cfg.DebounceDur,
		broker:    pubsub.NewBroker[WatcherEvent](),
		done:      make(chan struct{}),
	}, nil
}

// Broker returns the broker carrying watcher events.
func (w *Watcher) Broker() *pubsub.Broker[WatcherEvent] {
	return w.broker
}

// Start begins watching the output directory.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	log.SafeGo("watcher-loop", w.loop)
	return nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing: a burst of image
// writes from one batch collapses into a single OutputChanged event.
func (w *Watcher) loop() {
	var (
		timer    *time.Timer
		pending  bool
		lastPath string
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !isImageEvent(event) {
				continue
			}
			lastPath = event.Name

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = true
			} else {
				if !timer.Stop() {
					// Drain the timer channel if it already fired
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
				pending = true
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				log.Debug(log.CatWatcher, "output directory changed", "path", lastPath)
				w.broker.Publish(WatcherEvent{Type: OutputChanged, Path: lastPath})
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "watch error", "error", err)
			w.broker.Publish(WatcherEvent{Type: WatcherError, Err: err})

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isImageEvent checks if the event is a freshly written image file.
func isImageEvent(event fsnotify.Event) bool {
	// Writes, creates, and renames all show up when the backend saves a
	// batch.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}

	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	default:
		return false
	}
}
