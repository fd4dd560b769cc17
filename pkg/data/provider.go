package data

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Status reports whether a provider can be resolved right now.
type Status int

const (
	// StatusReady means Resolve returns immediately.
	StatusReady Status = iota
	// StatusPending means the value is still being produced; resolving it
	// during a render suspends the render instead of blocking.
	StatusPending
)

// Provider is the slot every environment binding, record field and list
// element occupies. Ready providers resolve immediately; pending ones make
// the render engine hand control back to the host.
type Provider interface {
	Status() Status
	// Resolve returns the value, or the producer's failure. Resolving a
	// pending provider is a contract violation and returns an error.
	Resolve() (Value, error)
}

type readyProvider struct {
	value Value
}

// Ready wraps an already resolved value as a provider.
func Ready(v Value) Provider {
	if v == nil {
		v = Null{}
	}
	return readyProvider{value: v}
}

func (p readyProvider) Status() Status          { return StatusReady }
func (p readyProvider) Resolve() (Value, error) { return p.value, nil }

// ErrNotReady is returned when a pending provider is resolved before its
// producer completed it.
var ErrNotReady = errors.New("data: async value is not ready")

// Async is a host-completed pending value. It is created pending; the
// producer completes it exactly once with Set or Fail, after which every
// render waiting on it may resume. Safe for concurrent use; no goroutines
// are started on the value's behalf.
type Async struct {
	id uuid.UUID

	mu   sync.Mutex
	done bool
	val  Value
	err  error
}

// NewAsync creates a pending value with a fresh identity.
func NewAsync() *Async {
	return &Async{id: uuid.New()}
}

// ID identifies the pending value across suspension results and logs.
func (a *Async) ID() uuid.UUID { return a.id }

// Status implements Provider.
func (a *Async) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return StatusReady
	}
	return StatusPending
}

// Resolve implements Provider. A failed value resolves to the producer's
// error.
func (a *Async) Resolve() (Value, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.done {
		return nil, fmt.Errorf("%w (id %s)", ErrNotReady, a.id)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.val, nil
}

// Set completes the value. Completing twice is a programmer error and
// panics.
func (a *Async) Set(v Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		panic("data: async value completed twice")
	}
	if v == nil {
		v = Null{}
	}
	a.done = true
	a.val = v
}

// Fail completes the value with the producer's failure.
func (a *Async) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		panic("data: async value completed twice")
	}
	if err == nil {
		err = errors.New("data: async value failed without cause")
	}
	a.done = true
	a.err = err
}
