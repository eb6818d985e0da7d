// Package eventloop implements the single-threaded, cooperative loop that
// multiplexes a handful of readable file descriptors against a handful of
// periodic timers. It is the only place in the broker that blocks.
package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// Callback is invoked when a registered fd becomes readable or a timer
// fires. Returning false terminates the loop after the current callback.
type Callback func() bool

// FdSource is anything that can hand the loop a raw, poll()-able file
// descriptor — a UDP socket, a non-blocking stdin, a timerfd.
type FdSource interface {
	Fd() int
}

type fdRegistration struct {
	fd    int
	cback Callback
}

type timerRegistration struct {
	interval time.Duration
	next     time.Time
	cback    Callback
}

// Loop owns an ordered set of fd registrations and timers. Within one
// iteration every ready fd callback runs, in registration order, before
// any timer callback; timer re-arming is relative to the invocation
// instant rather than the ideal schedule, so a slow callback skews later
// firings instead of causing catch-up bursts.
type Loop struct {
	fds    []fdRegistration
	timers []timerRegistration
}

// New returns an empty Loop.
func New() *Loop {
	return &Loop{}
}

// RegisterFd registers a level-triggered readable callback for fd.
func (l *Loop) RegisterFd(fd int, cback Callback) *Loop {
	l.fds = append(l.fds, fdRegistration{fd: fd, cback: cback})
	return l
}

// RegisterSource is RegisterFd for anything implementing FdSource.
func (l *Loop) RegisterSource(src FdSource, cback Callback) *Loop {
	return l.RegisterFd(src.Fd(), cback)
}

// RegisterTimer arms a periodic timer; the first firing is interval from
// now, not immediate.
func (l *Loop) RegisterTimer(interval time.Duration, cback Callback) *Loop {
	l.timers = append(l.timers, timerRegistration{
		interval: interval,
		next:     time.Now().Add(interval),
		cback:    cback,
	})
	return l
}

// nextTimeout returns how long to wait before the earliest timer fires,
// clamped to zero if one has already expired, or -1 if there are no
// timers at all (block indefinitely for fd readiness).
func (l *Loop) nextTimeout() time.Duration {
	if len(l.timers) == 0 {
		return -1
	}

	now := time.Now()
	min := l.timers[0].next.Sub(now)
	for _, t := range l.timers[1:] {
		if d := t.next.Sub(now); d < min {
			min = d
		}
	}
	if min < 0 {
		min = 0
	}
	return min
}

// Run blocks until a callback returns false or poll reports an
// unrecoverable error. Spurious wakeups (EINTR) are retried transparently.
func (l *Loop) Run() error {
	pollFds := make([]unix.PollFd, len(l.fds))
	for i, reg := range l.fds {
		pollFds[i].Fd = int32(reg.fd)
		pollFds[i].Events = unix.POLLIN
	}

	for {
		timeout := l.nextTimeout()
		ms := -1
		if timeout >= 0 {
			ms = int(timeout / time.Millisecond)
		}

		for i := range pollFds {
			pollFds[i].Revents = 0
		}

		n, err := unix.Poll(pollFds, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		if n > 0 {
			for i, pfd := range pollFds {
				if pfd.Revents == 0 {
					continue
				}
				if !l.fds[i].cback() {
					return nil
				}
			}
		}

		now := time.Now()
		for i := range l.timers {
			if now.Before(l.timers[i].next) {
				continue
			}
			l.timers[i].next = now.Add(l.timers[i].interval)
			if !l.timers[i].cback() {
				return nil
			}
		}
	}
}
