//go:build linux

package wake

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ahmedkamals/visstream/internal/errors"
	"golang.org/x/sys/unix"
)

type (
	// EventFD is a Signal backed by a non blocking eventfd counter.
	EventFD struct {
		mtx    sync.RWMutex
		fd     int
		closed bool
	}
)

var one = func() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, 1)
	return b
}()

// NewEventFD creates an eventfd backed Signal.
func NewEventFD() (*EventFD, error) {
	const op errors.Operation = "wake.NewEventFD"

	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, errors.E(op, errors.Failure, err)
	}

	return &EventFD{fd: fd}, nil
}

func (e *EventFD) Notify() error {
	const op errors.Operation = "EventFD.Notify"

	e.mtx.RLock()
	defer e.mtx.RUnlock()

	if e.closed {
		return errors.E(op, errors.Terminated)
	}

	for {
		_, err := unix.Write(e.fd, one)
		switch err {
		case nil:
			return nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			// Counter saturated, it is ready anyway.
			return nil
		default:
			return errors.E(op, errors.Failure, err)
		}
	}
}

func (e *EventFD) Wait(timeout time.Duration) (bool, error) {
	const op errors.Operation = "EventFD.Wait"

	e.mtx.RLock()
	if e.closed {
		e.mtx.RUnlock()
		return false, errors.E(op, errors.Terminated)
	}
	fd := e.fd
	e.mtx.RUnlock()

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, errors.E(op, errors.Failure, err)
		}
		if fds[0].Revents&(unix.POLLNVAL|unix.POLLHUP) != 0 {
			return false, errors.E(op, errors.Terminated)
		}

		return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
	}
}

func (e *EventFD) Clear() error {
	const op errors.Operation = "EventFD.Clear"

	e.mtx.RLock()
	defer e.mtx.RUnlock()

	if e.closed {
		return nil
	}

	buf := make([]byte, 8)
	for {
		_, err := unix.Read(e.fd, buf)
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return errors.E(op, errors.Failure, err)
		}
	}
}

func (e *EventFD) Close() error {
	const op errors.Operation = "EventFD.Close"

	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	// Wake a poller before the descriptor goes away.
	_, _ = unix.Write(e.fd, one)

	if err := unix.Close(e.fd); err != nil {
		return errors.E(op, errors.Failure, err)
	}

	return nil
}
