package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("plan-ready")
	if v := <-ch; v != "plan-ready" {
		t.Fatalf("expected plan-ready got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatal("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatal("expected ch2 closed")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := New()
	bus.Close()
	bus.Publish("dropped")
}

func TestSubscribeTypedFilters(t *testing.T) {
	type planReady struct{ ID string }
	bus := New()
	ch, cancel := SubscribeTyped[planReady](bus)
	defer cancel()

	bus.Publish("noise")
	bus.Publish(42)
	bus.Publish(planReady{ID: "p-1"})

	got := <-ch
	if got.ID != "p-1" {
		t.Fatalf("expected p-1 got %+v", got)
	}
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected extra event %+v", v)
		}
	default:
	}
}

func TestSubscribeTypedClosesWithBus(t *testing.T) {
	bus := New()
	ch, _ := SubscribeTyped[string](bus)
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatal("typed channel must close with the bus")
	}
}
