package wake

import (
	"sync"
	"time"

	"github.com/ahmedkamals/visstream/internal/errors"
)

type (
	// Chan is a Signal backed by a one slot channel.
	Chan struct {
		ready  chan struct{}
		done   chan struct{}
		closer sync.Once
	}
)

// NewChan creates a channel backed Signal.
func NewChan() *Chan {
	return &Chan{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (c *Chan) Notify() error {
	const op errors.Operation = "Chan.Notify"

	select {
	case <-c.done:
		return errors.E(op, errors.Terminated)
	default:
	}

	select {
	case c.ready <- struct{}{}:
	// Already ready.
	default:
	}

	return nil
}

func (c *Chan) Wait(timeout time.Duration) (bool, error) {
	const op errors.Operation = "Chan.Wait"

	select {
	case <-c.done:
		return false, errors.E(op, errors.Terminated)
	default:
	}

	if c.peek() {
		return true, nil
	}

	if timeout == 0 {
		return false, nil
	}

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-c.ready:
		c.restore()
		return true, nil
	case <-c.done:
		return false, errors.E(op, errors.Terminated)
	case <-timerC:
		return false, nil
	}
}

// peek reports readiness without consuming it.
func (c *Chan) peek() bool {
	select {
	case <-c.ready:
		c.restore()
		return true
	default:
		return false
	}
}

func (c *Chan) restore() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *Chan) Clear() error {
	select {
	case <-c.ready:
	default:
	}

	return nil
}

// C exposes the readiness channel for select loops. Receiving from it
// consumes the readiness.
func (c *Chan) C() <-chan struct{} {
	return c.ready
}

func (c *Chan) Close() error {
	c.closer.Do(func() {
		close(c.done)
	})

	return nil
}
