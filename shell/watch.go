package shell

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// watchConfig reloads the launcher configuration when the file changes.
// A reload runs once no change has arrived for reloadDelay.
func (s *Shell) watchConfig() (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path := s.l.ConfigPath()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	d := newDebouncer(s.reloadDelay, s.reload)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					d.Trigger()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warnf(logging.DestinationConfig, "watching %s: %v", path, err)
			}
		}
	}()

	return func() {
		_ = watcher.Close()
		<-done
		d.Stop()
	}, nil
}

// reload re-reads the configuration and shows the refreshed server list
func (s *Shell) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Infof(logging.DestinationConfig, "Reloading modified %s", filepath.Base(s.l.ConfigPath()))
	if err := s.l.Reload(); err != nil {
		s.log.Errorf(logging.DestinationConfig, "%v", err)
		return
	}
	if s.interactive {
		s.listConfigurations(context.Background())
		s.showPrompt()
	}
}

// debouncer runs fn once after triggers have stopped arriving for delay
type debouncer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

// Trigger restarts the delay
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending run
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
