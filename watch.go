package visstream

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/fsnotify/fsnotify"
)

// Watch ingests the file at path now and again every time it is written.
// A new read stops the worker still reading an older version.
func (s *Session) Watch(path string) error {
	const op errors.Operation = "Session.Watch"

	path = filepath.Clean(path)

	s.mtx.Lock()
	if s.closing {
		s.mtx.Unlock()
		return errors.E(op, errors.Terminated)
	}

	if s.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			s.mtx.Unlock()
			return errors.E(op, errors.Failure, err)
		}
		s.watcher = watcher
		s.group.Go(func() error {
			s.monitorWatcher(watcher)
			return nil
		})
	}

	// Watch the directory, editors often replace the file.
	if err := s.watcher.Add(filepath.Dir(path)); err != nil {
		s.mtx.Unlock()
		return errors.E(op, errors.Failure, err)
	}
	if _, ok := s.watched[path]; !ok {
		s.watched[path] = nil
	}
	s.mtx.Unlock()

	s.ingestFile(path)

	return nil
}

// monitorWatcher forwards write events of watched files.
func (s *Session) monitorWatcher(watcher *fsnotify.Watcher) {
	const op errors.Operation = "Session.monitorWatcher"

	defer func() {
		if err := recover(); err != nil {
			s.errorQueue.Report(errors.Recovered(op, err))
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.scheduleIngest(filepath.Clean(event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.errorQueue.Report(errors.E(op, errors.Failure, err))
		case <-s.ctx.Done():
			return
		}
	}
}

// scheduleIngest re-reads path once it has been quiet for the watch delay.
func (s *Session) scheduleIngest(path string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	timer, ok := s.watched[path]
	if !ok || s.closing {
		return
	}

	if timer != nil {
		timer.Reset(s.watchDelay)
		return
	}

	s.watched[path] = time.AfterFunc(s.watchDelay, func() {
		s.ingestFile(path)
	})
}

func (s *Session) ingestFile(path string) {
	const op errors.Operation = "Session.ingestFile"

	for _, worker := range s.workers.FindByLabel(path) {
		worker.Stop()
	}

	file, err := os.Open(path)
	if err != nil {
		s.errorQueue.Report(errors.E(op, errors.StreamError, err))
		return
	}

	if _, err := s.AddSource(path, file); err != nil {
		_ = file.Close()
	}
}
