package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type chanEmitter struct {
	ch  chan *SessionEvent
	err error
}

func (c *chanEmitter) Emit(ctx context.Context, event *SessionEvent) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("emit context has no deadline")
	}
	c.ch <- event
	return c.err
}

func TestEmitAsync_Delivers(t *testing.T) {
	em := &chanEmitter{ch: make(chan *SessionEvent, 1)}
	EmitAsync(em, &SessionEvent{Type: EventLogin, UserID: "u1"})

	select {
	case got := <-em.ch:
		if got.Type != EventLogin || got.UserID != "u1" {
			t.Errorf("event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EmitAsync did not deliver event")
	}
}

func TestEmitAsync_ErrorIsAbsorbed(t *testing.T) {
	em := &chanEmitter{ch: make(chan *SessionEvent, 1), err: errors.New("collector down")}
	EmitAsync(em, &SessionEvent{Type: EventLogout})
	select {
	case <-em.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("EmitAsync did not call Emit")
	}
}

func TestEmitAsync_NilArgs(t *testing.T) {
	EmitAsync(nil, &SessionEvent{Type: EventLogin})
	em := &chanEmitter{ch: make(chan *SessionEvent, 1)}
	EmitAsync(em, nil)
	select {
	case <-em.ch:
		t.Fatal("Emit should not be called for nil event")
	case <-time.After(50 * time.Millisecond):
	}
}

type countingEmitter struct {
	calls int
	err   error
}

func (c *countingEmitter) Emit(context.Context, *SessionEvent) error {
	c.calls++
	return c.err
}

func TestFanout_CallsEveryEmitter(t *testing.T) {
	failing := &countingEmitter{err: errors.New("db down")}
	ok := &countingEmitter{}
	err := Fanout(failing, nil, ok).Emit(context.Background(), &SessionEvent{Type: EventLogin})
	if err == nil || err.Error() != "db down" {
		t.Errorf("err = %v, want first error", err)
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls, ok.calls)
	}
}

func TestFanout_Empty(t *testing.T) {
	if err := Fanout().Emit(context.Background(), &SessionEvent{}); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

type slowEmitter struct{ release chan struct{} }

func (s *slowEmitter) Emit(context.Context, *SessionEvent) error {
	<-s.release
	return nil
}

func TestWait(t *testing.T) {
	em := &slowEmitter{release: make(chan struct{})}
	EmitAsync(em, &SessionEvent{Type: EventLogin})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := Wait(ctx); err == nil {
		t.Fatal("Wait should time out while an emit is pending")
	}

	close(em.release)
	if err := Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v", err)
	}
}
