package sim

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrAlreadySuspended is returned by Stack.Suspend on a halted stack
var ErrAlreadySuspended = errors.New("network stack already suspended")

// Stack is an in-process network stack. Deliver stands in for the data path:
// it bumps the activity counter and, while suspended, invokes the wake
// handler the way a packet interrupt would.
type Stack struct {
	count     atomic.Uint64
	suspended atomic.Bool
	suspends  atomic.Uint64
	resumes   atomic.Uint64

	mu         sync.Mutex
	onWake     func() bool
	suspendErr error
}

// NewStack creates a running stack
func NewStack() *Stack {
	return &Stack{}
}

// SetWakeHandler registers the data-path activity callback, typically
// suspend.Controller.Wake
func (s *Stack) SetWakeHandler(fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWake = fn
}

// FailSuspend makes subsequent Suspend calls return err; nil clears it
func (s *Stack) FailSuspend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspendErr = err
}

// ActivityCount returns the number of packets delivered so far
func (s *Stack) ActivityCount() uint64 {
	return s.count.Load()
}

// Suspend halts the stack
func (s *Stack) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspendErr != nil {
		return s.suspendErr
	}
	if !s.suspended.CompareAndSwap(false, true) {
		return ErrAlreadySuspended
	}
	s.suspends.Add(1)
	return nil
}

// Resume restarts the stack. Resuming a running stack is a no-op.
func (s *Stack) Resume() error {
	if s.suspended.CompareAndSwap(true, false) {
		s.resumes.Add(1)
	}
	return nil
}

// Suspended reports whether the stack is halted
func (s *Stack) Suspended() bool {
	return s.suspended.Load()
}

// Counts returns how often the stack was suspended and resumed
func (s *Stack) Counts() (suspends, resumes uint64) {
	return s.suspends.Load(), s.resumes.Load()
}

// Deliver records n packets
func (s *Stack) Deliver(n int) {
	if n <= 0 {
		return
	}
	// Counting and the suspended check share mu with Suspend, so a packet
	// is either seen before the stack halts or wakes it.
	s.mu.Lock()
	s.count.Add(uint64(n))
	suspended := s.suspended.Load()
	wake := s.onWake
	s.mu.Unlock()
	if suspended && wake != nil {
		wake()
	}
}
