package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) handler(name string) Handler {
	return func(_ context.Context, _ Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.calls = append(c.calls, name)
		return nil
	}
}

func (c *callLog) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func TestRouterDispatchSpecific(t *testing.T) {
	r := NewRouter()
	log := &callLog{}
	r.On("command:start", log.handler("start"))

	ev := Event{Type: EventCommand, Name: "start", ChatID: 123, UserID: 456, Text: "/start"}
	if err := r.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := log.got(); !reflect.DeepEqual(got, []string{"start"}) {
		t.Errorf("calls = %v, want [start]", got)
	}
}

func TestRouterDispatchType(t *testing.T) {
	r := NewRouter()
	var seen Event
	r.On("message", func(_ context.Context, ev Event) error {
		seen = ev
		return nil
	})

	ev := Event{Type: EventMessage, ChatID: 123, UserID: 456, Text: "Hello"}
	r.Dispatch(context.Background(), ev)
	if seen.Text != "Hello" || seen.ChatID != 123 {
		t.Errorf("handler saw %+v", seen)
	}
}

func TestRouterDispatchMultipleHandlersInOrder(t *testing.T) {
	r := NewRouter()
	log := &callLog{}
	r.On("message", log.handler("first"))
	r.On("message", log.handler("second"))
	r.On("message", log.handler("third"))

	r.Dispatch(context.Background(), Event{Type: EventMessage})

	want := []string{"first", "second", "third"}
	if got := log.got(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestRouterPrecedence(t *testing.T) {
	r := NewRouter()
	log := &callLog{}
	r.On(Wildcard, log.handler("wildcard"))
	r.On("message", log.handler("message"))
	r.On("command", log.handler("command"))
	r.On("command:start", log.handler("start"))

	tests := []struct {
		name string
		ev   Event
		want []string
	}{
		{"specific suppresses type", Event{Type: EventCommand, Name: "start"}, []string{"wildcard", "start"}},
		{"unknown command falls back", Event{Type: EventCommand, Name: "other"}, []string{"wildcard", "command"}},
		{"empty name uses type", Event{Type: EventCommand}, []string{"wildcard", "command"}},
		{"plain message", Event{Type: EventMessage}, []string{"wildcard", "message"}},
		{"wildcard only", Event{Type: EventJoin}, []string{"wildcard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.mu.Lock()
			log.calls = nil
			log.mu.Unlock()

			r.Dispatch(context.Background(), tt.ev)
			if got := log.got(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("calls = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouterDispatchNoHandler(t *testing.T) {
	r := NewRouter()
	if err := r.Dispatch(context.Background(), Event{Type: "unknown"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := r.Handlers(Event{Type: EventMessage}); len(got) != 0 {
		t.Errorf("resolved %d handlers, want 0", len(got))
	}
}

func TestRouterHandlerErrorDoesNotStopOthers(t *testing.T) {
	r := NewRouter()
	log := &callLog{}
	boom := errors.New("boom")
	r.On(Wildcard, func(context.Context, Event) error { return boom })
	r.On("message", log.handler("after"))

	err := r.Dispatch(context.Background(), Event{Type: EventMessage})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if got := log.got(); !reflect.DeepEqual(got, []string{"after"}) {
		t.Errorf("calls = %v, want [after]", got)
	}
}

func TestRouterOnReturnsHandler(t *testing.T) {
	r := NewRouter()
	called := false
	h := r.On("message", func(context.Context, Event) error {
		called = true
		return nil
	})
	if h == nil {
		t.Fatal("On returned nil")
	}
	h(context.Background(), Event{})
	if !called {
		t.Error("returned handler is not the registered one")
	}

	if r.On("message", nil) != nil {
		t.Error("On(nil) should return nil")
	}
	if got := len(r.Handlers(Event{Type: EventMessage})); got != 1 {
		t.Errorf("resolved %d handlers, want 1", got)
	}
}

func TestRouterKeys(t *testing.T) {
	r := NewRouter()
	log := &callLog{}
	r.On("message", log.handler("a"))
	r.On(Wildcard, log.handler("b"))
	r.On("command:start", log.handler("c"))

	want := []string{"*", "command:start", "message"}
	if got := r.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestRouterConcurrentRegisterAndDispatch(t *testing.T) {
	r := NewRouter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.On(fmt.Sprintf("command:c%d", i%5), func(context.Context, Event) error { return nil })
		}(i)
		go func() {
			defer wg.Done()
			r.Dispatch(context.Background(), Event{Type: EventCommand, Name: "c1"})
		}()
	}
	wg.Wait()

	if got := len(r.Handlers(Event{Type: EventCommand, Name: "c1"})); got != 10 {
		t.Errorf("resolved %d handlers, want 10", got)
	}
}
