package mergeserver

import (
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Watch re-merges when one of the given snippet files changes. The watch is
// on the parent directories, so editors that replace files (rename-over)
// still trigger. Events are debounced; a failed re-merge keeps the previous
// document and is only logged.
func (s *Server) Watch(paths []string, debounce time.Duration) (io.Closer, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		resetTimer := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			timerC = timer.C
		}

		for {
			select {
			case <-stopCh:
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				if err := s.Reload(); err != nil {
					log.Printf("re-merge failed (watch): %v", err)
					continue
				}
				log.Printf("re-merge ok (watch)")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("snippet watcher error: %v", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldTriggerRemerge(evt, watched) {
					resetTimer()
				}
			}
		}
	}()

	log.Printf("snippet watch enabled: files=%d debounce=%s", len(watched), debounce)
	return closerFunc(func() error {
		close(stopCh)
		_ = watcher.Close()
		<-doneCh
		return nil
	}), nil
}

// shouldTriggerRemerge reports whether an event concerns one of the watched
// snippet files.
func shouldTriggerRemerge(evt fsnotify.Event, watched map[string]bool) bool {
	name := strings.TrimSpace(evt.Name)
	if name == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return watched[abs]
}
