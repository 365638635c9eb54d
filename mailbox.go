package visstream

import (
	"context"
	"sync"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/ahmedkamals/visstream/internal/wake"
)

type (
	// Ticket identifies a posted command. Tickets grow by one per post.
	Ticket uint64

	// Mailbox is a single slot hand-off between many posting goroutines and
	// the one goroutine that drains it.
	Mailbox interface {
		// Post blocks until the slot is free, then stores the command.
		// ctx only bounds the wait for the slot.
		Post(context.Context, Command) error
		// PostAndAwaitCompletion posts and then blocks until the command is completed.
		PostAndAwaitCompletion(context.Context, Command) error
		// TryDrain takes the pending command, if any, without blocking.
		TryDrain() (Command, Ticket, bool)
		// Complete marks a drained command as applied and releases its waiter.
		Complete(Ticket)
		// BeginTerminate wakes every blocked caller with a Terminated error
		// and returns the command that was still pending, if any.
		BeginTerminate() Command
		// Completed returns the ticket of the last completed command.
		Completed() Ticket
		// Waiting returns the number of callers blocked waiting for the slot.
		Waiting() int
		// Terminating reports whether BeginTerminate was called.
		Terminating() bool
		// Signal returns the readiness signal notified on every post.
		Signal() wake.Signal
	}

	slotState uint8

	mailbox struct {
		mtx         sync.Mutex
		cond        *sync.Cond
		state       slotState
		pending     Command
		synchronous bool
		ticket      Ticket
		issued      Ticket
		completed   Ticket
		waiting     int
		terminating bool
		signal      wake.Signal
		errorQueue  ErrorQueue
	}
)

const (
	slotEmpty slotState = iota
	slotPending
	slotDraining
)

func (s slotState) String() string {
	switch s {
	case slotPending:
		return "pending"
	case slotDraining:
		return "draining"
	}

	return "empty"
}

// NewMailbox creates a new Mailbox notifying signal on every post.
func NewMailbox(signal wake.Signal, errorQueue ErrorQueue) Mailbox {
	m := &mailbox{
		signal:     signal,
		errorQueue: errorQueue,
	}
	m.cond = sync.NewCond(&m.mtx)

	return m
}

func (m *mailbox) Post(ctx context.Context, cmd Command) error {
	return m.deliver(ctx, "Mailbox.Post", cmd, false)
}

func (m *mailbox) PostAndAwaitCompletion(ctx context.Context, cmd Command) error {
	return m.deliver(ctx, "Mailbox.PostAndAwaitCompletion", cmd, true)
}

func (m *mailbox) deliver(ctx context.Context, op errors.Operation, cmd Command, await bool) error {
	if cmd == nil {
		return errors.E(op, errors.Invalid)
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if ctx != nil && ctx.Done() != nil {
		stop := context.AfterFunc(ctx, m.wakeAll)
		defer stop()
	}

	m.waiting++
	for m.state != slotEmpty && !m.terminating && !canceled(ctx) {
		m.cond.Wait()
	}
	m.waiting--

	if m.terminating {
		return errors.E(op, errors.Terminated)
	}

	if canceled(ctx) {
		return errors.E(op, errors.Canceled, ctx.Err())
	}

	m.store(op, cmd, await)

	if !await {
		return nil
	}

	ticket := m.ticket
	for m.completed < ticket && !m.terminating {
		m.cond.Wait()
	}

	if m.completed < ticket {
		return errors.E(op, errors.Terminated)
	}

	return nil
}

// store puts cmd in the empty slot. The caller holds the lock.
func (m *mailbox) store(op errors.Operation, cmd Command, synchronous bool) {
	if m.state != slotEmpty || m.pending != nil {
		panic(errors.E(op, errors.InvariantViolation, errors.Errorf("slot is %s while storing %s", m.state, cmd)))
	}

	m.issued++
	m.ticket = m.issued
	m.pending = cmd
	m.synchronous = synchronous
	m.state = slotPending

	if err := m.signal.Notify(); err != nil && m.errorQueue != nil {
		// The fallback timer of the render loop still drains the slot.
		m.errorQueue.Report(errors.E(op, errors.Failure, err))
	}
}

func (m *mailbox) TryDrain() (Command, Ticket, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.state != slotPending {
		return nil, 0, false
	}

	cmd, ticket := m.pending, m.ticket
	m.pending = nil

	if m.synchronous {
		m.state = slotDraining
		return cmd, ticket, true
	}

	m.state = slotEmpty
	m.cond.Broadcast()

	return cmd, ticket, true
}

func (m *mailbox) Complete(ticket Ticket) {
	const op errors.Operation = "Mailbox.Complete"

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.state == slotDraining {
		if m.ticket != ticket {
			panic(errors.E(op, errors.InvariantViolation, errors.Errorf("completing ticket %d while %d is draining", ticket, m.ticket)))
		}
		m.state = slotEmpty
	}

	if ticket > m.completed {
		m.completed = ticket
	}

	m.cond.Broadcast()
}

func (m *mailbox) BeginTerminate() Command {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.terminating {
		return nil
	}
	m.terminating = true

	cmd := m.pending
	m.pending = nil
	if m.state == slotPending {
		m.state = slotEmpty
	}

	m.cond.Broadcast()

	return cmd
}

func (m *mailbox) Completed() Ticket {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.completed
}

func (m *mailbox) Waiting() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.waiting
}

func (m *mailbox) Terminating() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.terminating
}

func (m *mailbox) Signal() wake.Signal {
	return m.signal
}

func (m *mailbox) wakeAll() {
	m.mtx.Lock()
	m.cond.Broadcast()
	m.mtx.Unlock()
}

func canceled(ctx context.Context) bool {
	return ctx != nil && ctx.Err() != nil
}
