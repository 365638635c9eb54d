package visstream

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ahmedkamals/visstream/internal/errors"
)

type (
	identifiable interface {
		// ID returns the worker id.
		ID() UUID
	}

	// Worker reads one external stream and posts what it parses.
	Worker interface {
		identifiable
		fmt.GoStringer
		fmt.Stringer
		// Label describes the source, e.g. a file name or a remote address.
		Label() string
		// Run reads the stream until it ends, fails or ctx is done.
		// Cancellation is observed between units only.
		Run(context.Context) error
		// Stop cancels the worker and closes its source so a blocked read returns.
		Stop()
	}

	worker struct {
		id         UUID
		label      string
		source     io.Reader
		parser     Parser
		mailbox    Mailbox
		logger     Logger
		errorQueue ErrorQueue
		posting    atomic.Bool
		stop       chan struct{}
		stopOnce   sync.Once
	}
)

// NewWorker creates a new Worker for source.
func NewWorker(label string, source io.Reader, parse ParserFactory, mailbox Mailbox, logger Logger, errorQueue ErrorQueue) Worker {
	return &worker{
		id:         NewUUID(),
		label:      label,
		source:     source,
		parser:     parse(source),
		mailbox:    mailbox,
		logger:     logger,
		errorQueue: errorQueue,
		stop:       make(chan struct{}),
	}
}

func (w *worker) ID() UUID {
	return w.id
}

func (w *worker) Label() string {
	return w.label
}

func (w *worker) GoString() string {
	return fmt.Sprintf("%s[%s]", w.String(), w.id)
}

func (w *worker) String() string {
	return fmt.Sprintf("worker(%s)", w.label)
}

func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if closer, ok := w.source.(io.Closer); ok {
			_ = closer.Close()
		}
	})
}

func (w *worker) Run(ctx context.Context) (err error) {
	const op errors.Operation = "Worker.Run"

	defer func() {
		if recovered := recover(); recovered != nil {
			if violation, ok := recovered.(error); ok && errors.Is(errors.InvariantViolation, violation) {
				panic(recovered)
			}
			err = errors.Recovered(op, recovered)
			w.errorQueue.Report(err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.logger.Log(fmt.Sprintf("Stream: %s started", w.label))

	for {
		// Checkpoint: no unit is half read and the mailbox is not held.
		if ctx.Err() != nil {
			return errors.E(op, errors.Canceled, ctx.Err())
		}

		cmd, err := w.parser.Next()
		if err != nil {
			switch {
			case errors.Is(errors.MalformedUnit, err):
				w.errorQueue.Report(errors.E(op, errors.MalformedUnit, errors.Errorf("%s: %w", w.label, err)))
				continue
			case ctx.Err() != nil || w.stopped():
				return errors.E(op, errors.Canceled, context.Canceled)
			case errors.Is(errors.StreamClosed, err):
				w.logger.Log(fmt.Sprintf("Stream: %s end of input", w.label))
				return nil
			}

			err = errors.E(op, errors.StreamError, errors.Errorf("%s: %w", w.label, err))
			w.errorQueue.Report(err)

			return err
		}

		if err := w.submit(ctx, cmd); err != nil {
			return err
		}
	}
}

func (w *worker) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// submit hands cmd to the mailbox, waiting for it to be applied when its
// kind is synchronous.
func (w *worker) submit(ctx context.Context, cmd Command) error {
	const op errors.Operation = "Worker.submit"

	if w.posting.Swap(true) {
		panic(errors.E(op, errors.InvariantViolation, errors.Errorf("%s posted %s while a post is pending", w, cmd)))
	}
	defer w.posting.Store(false)

	if cmd.Kind().Synchronous() {
		return w.mailbox.PostAndAwaitCompletion(ctx, cmd)
	}

	return w.mailbox.Post(ctx, cmd)
}
