package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

type testEvent struct {
	eventType EventType
	payload   string
}

func (e *testEvent) Type() EventType { return e.eventType }

func TestEmitReachesAllListeners(t *testing.T) {
	bus := New(zap.NewNop())

	var count atomic.Int32
	bus.On("test.event", func(_ context.Context, _ Event) error {
		count.Add(1)
		return nil
	})
	bus.On("test.event", func(_ context.Context, _ Event) error {
		count.Add(1)
		return nil
	})
	bus.On("other.event", func(_ context.Context, _ Event) error {
		t.Error("listener for other event type should not fire")
		return nil
	})

	bus.Emit(context.Background(), &testEvent{eventType: "test.event"})

	if got := count.Load(); got != 2 {
		t.Errorf("expected 2 listener invocations, got %d", got)
	}
}

func TestEmitWaitsForListeners(t *testing.T) {
	bus := New(zap.NewNop())

	var done atomic.Bool
	bus.On("test.event", func(_ context.Context, _ Event) error {
		done.Store(true)
		return nil
	})

	bus.Emit(context.Background(), &testEvent{eventType: "test.event"})

	// Emit 返回时监听器必须已执行完毕
	if !done.Load() {
		t.Error("Emit returned before listener finished")
	}
}

func TestListenerFailureDoesNotAffectOthers(t *testing.T) {
	bus := New(zap.NewNop())

	var survived atomic.Bool
	bus.On("test.event", func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	bus.On("test.event", func(_ context.Context, _ Event) error {
		panic("worse boom")
	})
	bus.On("test.event", func(_ context.Context, _ Event) error {
		survived.Store(true)
		return nil
	})

	bus.Emit(context.Background(), &testEvent{eventType: "test.event"})

	if !survived.Load() {
		t.Error("healthy listener did not run alongside failing ones")
	}
}

func TestOffRemovesListener(t *testing.T) {
	bus := New(zap.NewNop())

	var count atomic.Int32
	sub := bus.On("test.event", func(_ context.Context, _ Event) error {
		count.Add(1)
		return nil
	})

	bus.Emit(context.Background(), &testEvent{eventType: "test.event"})
	bus.Off(sub)
	bus.Emit(context.Background(), &testEvent{eventType: "test.event"})

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 invocation after unsubscribe, got %d", got)
	}

	if n := bus.ListenerCount("test.event"); n != 0 {
		t.Errorf("expected 0 listeners, got %d", n)
	}
}

func TestRemoveAllListeners(t *testing.T) {
	bus := New(zap.NewNop())

	bus.On("a", func(_ context.Context, _ Event) error { return nil })
	bus.On("b", func(_ context.Context, _ Event) error { return nil })

	bus.RemoveAllListeners("a")
	if bus.ListenerCount("a") != 0 || bus.ListenerCount("b") != 1 {
		t.Error("targeted removal affected the wrong listeners")
	}

	bus.RemoveAllListeners()
	if bus.ListenerCount("b") != 0 {
		t.Error("full removal left listeners behind")
	}
}
