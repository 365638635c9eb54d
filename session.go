package visstream

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/ahmedkamals/visstream/internal/wake"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

type (
	// SessionOptions configure a Session. Zero values select defaults.
	SessionOptions struct {
		Width, Height  int
		Title          string
		Autopause      bool
		KeepAttributes bool
		FixOrientation bool
		// WatchDelay is how long a watched file must stay quiet before it is re-read.
		WatchDelay time.Duration
		// Parser creates the parser of every source.
		Parser ParserFactory
		// Screenshot stores captured frames.
		Screenshot ScreenshotWriter
		// Signal is the wake channel of the mailbox.
		Signal wake.Signal
	}

	// Session owns everything shared between the ingest workers and the
	// render goroutine: the mailbox, the executor with its scene, and the
	// workers themselves. It is created at startup and closed once.
	Session struct {
		id         UUID
		mailbox    Mailbox
		executor   *Executor
		workers    WorkerCollection
		group      errgroup.Group
		ctx        context.Context
		cancel     context.CancelFunc
		parse      ParserFactory
		logger     Logger
		errorQueue ErrorQueue
		watchDelay time.Duration

		mtx       sync.Mutex
		closing   bool
		listeners []net.Listener
		watcher   *fsnotify.Watcher
		watched   map[string]*time.Timer
		closeOnce sync.Once
	}
)

const (
	defaultWidth      = 400
	defaultHeight     = 350
	defaultTitle      = "visstream"
	defaultWatchDelay = 50 * time.Millisecond
)

// NewSession creates a new Session rendering through viewer.
func NewSession(viewer Viewer, logger Logger, errorQueue ErrorQueue, options SessionOptions) *Session {
	if options.Width <= 0 {
		options.Width = defaultWidth
	}
	if options.Height <= 0 {
		options.Height = defaultHeight
	}
	if options.Title == "" {
		options.Title = defaultTitle
	}
	if options.WatchDelay <= 0 {
		options.WatchDelay = defaultWatchDelay
	}
	if options.Parser == nil {
		options.Parser = StreamParserFactory(options.FixOrientation)
	}
	if options.Signal == nil {
		options.Signal = wake.New()
	}

	scene := NewScene(options.Width, options.Height, options.Title)
	scene.KeepAttributes = options.KeepAttributes
	scene.FixOrientation = options.FixOrientation

	mailbox := NewMailbox(options.Signal, errorQueue)
	executor := NewExecutor(mailbox, scene, viewer, options.Screenshot, logger, errorQueue)
	if options.Autopause {
		executor.autopause.Store(true)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:         NewUUID(),
		mailbox:    mailbox,
		executor:   executor,
		workers:    newWorkerCollection(),
		ctx:        ctx,
		cancel:     cancel,
		parse:      options.Parser,
		logger:     logger,
		errorQueue: errorQueue,
		watchDelay: options.WatchDelay,
		watched:    make(map[string]*time.Timer),
	}
}

// ID returns the session id.
func (s *Session) ID() UUID {
	return s.id
}

// Mailbox returns the session mailbox.
func (s *Session) Mailbox() Mailbox {
	return s.mailbox
}

// Executor returns the executor; it belongs to the render goroutine.
func (s *Session) Executor() *Executor {
	return s.executor
}

// Workers returns the live workers.
func (s *Session) Workers() WorkerCollection {
	return s.workers
}

// AddSource starts a worker reading source. The session owns source from
// now on and closes it when the worker ends, if it is an io.Closer.
func (s *Session) AddSource(label string, source io.Reader) (Worker, error) {
	const op errors.Operation = "Session.AddSource"

	if source == nil {
		return nil, errors.E(op, errors.Invalid)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closing {
		return nil, errors.E(op, errors.Terminated)
	}

	worker := NewWorker(label, source, s.parse, s.mailbox, s.logger, s.errorQueue)
	s.workers.Append(worker)

	s.group.Go(func() error {
		defer s.workers.Delete(worker)
		defer func() {
			if closer, ok := source.(io.Closer); ok {
				_ = closer.Close()
			}
		}()

		// Stream failures end this worker only; they are reported by it.
		_ = worker.Run(s.ctx)

		return nil
	})

	return worker, nil
}

// Serve accepts connections on ln, one worker per connection, until ln or
// the session is closed.
func (s *Session) Serve(ln net.Listener) error {
	const op errors.Operation = "Session.Serve"

	s.mtx.Lock()
	if s.closing {
		s.mtx.Unlock()
		return errors.E(op, errors.Terminated)
	}
	s.listeners = append(s.listeners, ln)
	s.mtx.Unlock()

	s.logger.Log(fmt.Sprintf("Listening on %s", ln.Addr()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if stderrors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return nil
			}
			return errors.E(op, errors.Failure, err)
		}

		if _, err := s.AddSource(conn.RemoteAddr().String(), conn); err != nil {
			_ = conn.Close()
			return nil
		}
	}
}

// Submit posts a control command, waiting for it to be applied when its
// kind is synchronous. Never call it from the render goroutine: use
// Executor.Apply there.
func (s *Session) Submit(ctx context.Context, cmd Command) error {
	const op errors.Operation = "Session.Submit"

	if cmd == nil {
		return errors.E(op, errors.Invalid)
	}

	if cmd.Kind().Synchronous() {
		return s.mailbox.PostAndAwaitCompletion(ctx, cmd)
	}

	return s.mailbox.Post(ctx, cmd)
}

// Close terminates the mailbox, stops every worker and waits for them.
// The executor is shut down once all workers are joined.
func (s *Session) Close() error {
	const op errors.Operation = "Session.Close"

	var err error

	s.closeOnce.Do(func() {
		s.mtx.Lock()
		s.closing = true
		listeners := s.listeners
		watcher := s.watcher
		for _, timer := range s.watched {
			if timer != nil {
				timer.Stop()
			}
		}
		s.mtx.Unlock()

		if dropped := s.mailbox.BeginTerminate(); dropped != nil {
			s.logger.Log(fmt.Sprintf("Dropped pending %s", dropped))
		}

		s.cancel()

		for _, ln := range listeners {
			_ = ln.Close()
		}

		if watcher != nil {
			if closeErr := watcher.Close(); closeErr != nil {
				s.errorQueue.Report(errors.E(op, errors.Failure, closeErr))
			}
		}

		for worker := range s.workers.Iterator() {
			worker.Stop()
		}

		err = s.group.Wait()

		s.executor.Shutdown()

		if closeErr := s.mailbox.Signal().Close(); closeErr != nil && err == nil {
			err = errors.E(op, errors.Failure, closeErr)
		}

		s.logger.Log("Session closed")
	})

	return err
}
