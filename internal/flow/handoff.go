package flow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultHandoffDelay separates the intent navigation from the deep-link fallback
const DefaultHandoffDelay = 700 * time.Millisecond

// Navigator sends the browser hosting a page to uri
type Navigator interface {
	Navigate(ctx context.Context, uri string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(ctx context.Context, uri string) error

func (f NavigatorFunc) Navigate(ctx context.Context, uri string) error { return f(ctx, uri) }

// Timer is the part of *time.Timer the hand-off needs
type Timer interface {
	Stop() bool
}

// Clock schedules deferred work
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Handoff moves the user from the confirmation page into the native app:
// the Android intent URI first, the custom-scheme deep link after Delay.
type Handoff struct {
	Scheme         string
	AndroidPackage string
	Path           string
	Delay          time.Duration

	clock Clock
}

// NewHandoff builds a hand-off for the app identified by scheme and package
func NewHandoff(scheme, androidPackage, path string, delay time.Duration) Handoff {
	if delay < 0 {
		delay = DefaultHandoffDelay
	}
	return Handoff{
		Scheme:         scheme,
		AndroidPackage: androidPackage,
		Path:           path,
		Delay:          delay,
	}
}

// WithClock returns a copy of h scheduling through c
func (h Handoff) WithClock(c Clock) Handoff {
	h.clock = c
	return h
}

// IntentURI is resolved by Android straight to the installed app
func (h Handoff) IntentURI() string {
	return fmt.Sprintf("intent://%s?confirmed=1#Intent;scheme=%s;package=%s;end;", h.Path, h.Scheme, h.AndroidPackage)
}

// DeepLink is the plain custom-scheme fallback
func (h Handoff) DeepLink() string {
	return fmt.Sprintf("%s://%s?confirmed=1", h.Scheme, h.Path)
}

// Start navigates to the intent URI now and schedules the deep link. The scheduled
// navigation is dropped when ctx is cancelled or Stop is called before it fires.
func (h Handoff) Start(ctx context.Context, nav Navigator) (*Scheduled, error) {
	if err := nav.Navigate(ctx, h.IntentURI()); err != nil {
		return nil, fmt.Errorf("navigate to intent uri: %w", err)
	}

	clock := h.clock
	if clock == nil {
		clock = realClock{}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduled{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	timer := clock.AfterFunc(h.Delay, func() { s.fire(ctx, nav, h.DeepLink()) })
	s.mu.Lock()
	s.timer = timer
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	return s, nil
}

const (
	scheduledPending int32 = iota
	scheduledFired
	scheduledStopped
)

// Scheduled is the pending deep-link navigation of a started hand-off
type Scheduled struct {
	state  atomic.Int32
	done   chan struct{}
	cancel context.CancelFunc

	mu    sync.Mutex
	timer Timer
	err   error
}

// Stop cancels the pending navigation. It reports whether this call prevented it.
func (s *Scheduled) Stop() bool {
	if !s.state.CompareAndSwap(scheduledPending, scheduledStopped) {
		return false
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	close(s.done)
	s.cancel()
	return true
}

// Done is closed once the deep link fired or the hand-off was stopped
func (s *Scheduled) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the deep-link navigation happened
func (s *Scheduled) Fired() bool {
	return s.state.Load() == scheduledFired
}

// Err returns the deep-link navigation error, if it fired and failed
func (s *Scheduled) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scheduled) fire(ctx context.Context, nav Navigator, uri string) {
	if ctx.Err() != nil {
		s.Stop()
		return
	}
	if !s.state.CompareAndSwap(scheduledPending, scheduledFired) {
		return
	}
	err := nav.Navigate(ctx, uri)
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
	s.cancel()
}
