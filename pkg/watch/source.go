package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Event is a single filesystem change.
type Event struct {
	Path string
	Op   string
}

// Source delivers raw filesystem events.
type Source interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// fsSource watches a directory tree with fsnotify, following new subdirectories.
type fsSource struct {
	w       *fsnotify.Watcher
	matcher *Matcher
	logger  *slog.Logger
	events  chan Event
	errors  chan error
	done    chan struct{}
}

func newFSSource(root string, matcher *Matcher, logger *slog.Logger) (*fsSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &domain.WatchError{Path: root, Err: err}
	}
	s := &fsSource{
		w:       w,
		matcher: matcher,
		logger:  logger,
		events:  make(chan Event, 64),
		errors:  make(chan error, 8),
		done:    make(chan struct{}),
	}
	if err := s.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}
	go s.loop()
	return s, nil
}

// addTree registers dir and every non-ignored directory below it.
func (s *fsSource) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return &domain.WatchError{Path: path, Err: err}
			}
			s.logger.Debug("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && s.matcher.Ignored(path) {
			return filepath.SkipDir
		}
		if err := s.w.Add(path); err != nil {
			return &domain.WatchError{Path: path, Err: err}
		}
		return nil
	})
}

func (s *fsSource) loop() {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !s.matcher.Ignored(ev.Name) {
					if err := s.addTree(ev.Name); err != nil {
						s.sendErr(err)
					}
				}
			}
			select {
			case s.events <- Event{Path: ev.Name, Op: ev.Op.String()}:
			case <-s.done:
				return
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			s.sendErr(&domain.WatchError{Err: err})
		}
	}
}

func (s *fsSource) sendErr(err error) {
	select {
	case s.errors <- err:
	default:
		s.logger.Warn("dropping watch error", "err", err)
	}
}

func (s *fsSource) Events() <-chan Event { return s.events }
func (s *fsSource) Errors() <-chan error { return s.errors }

func (s *fsSource) Close() error {
	close(s.done)
	return s.w.Close()
}
