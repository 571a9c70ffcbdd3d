// Package telemetry defines session events and the emitter they are sent through.
package telemetry

import (
	"context"
	"log"
	"sync"
	"time"
)

// Session event types.
const (
	EventSessionRestored = "session_restored"
	EventLogin           = "login"
	EventRegister        = "register"
	EventLogout          = "logout"
	EventRoleSwitched    = "role_switched"
	EventRoleAdded       = "role_added"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// SessionEvent describes one session state transition.
type SessionEvent struct {
	Type      string
	UserID    string
	Role      string // active role after the transition; empty when signed out
	Source    string
	Metadata  []byte // JSON
	CreatedAt time.Time
}

// EventEmitter emits session events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *SessionEvent) error
}

// inflight counts EmitAsync goroutines that have not finished.
var inflight sync.WaitGroup

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// emitter and event may be nil; EmitAsync then returns without starting a goroutine.
// The goroutine uses context.Background() so caller cancellation does not abort the emit.
func EmitAsync(emitter EventEmitter, event *SessionEvent) {
	if emitter == nil || event == nil {
		return
	}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}

// Wait blocks until every pending EmitAsync call has finished or ctx is done. Short-lived
// processes call it before closing the resources emitters write to.
func Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fanout sends each event to every emitter. All emitters are tried; the first error is returned.
func Fanout(emitters ...EventEmitter) EventEmitter {
	out := make(fanout, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type fanout []EventEmitter

func (f fanout) Emit(ctx context.Context, event *SessionEvent) error {
	var first error
	for _, e := range f {
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
