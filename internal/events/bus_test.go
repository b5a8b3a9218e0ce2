package events

import (
	"sync"
	"testing"
)

func TestBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewBus(16, nil)

	var got []Type
	bus.Subscribe(func(ev Event) {
		got = append(got, ev.Type)
	})
	go bus.Run()

	want := []Type{TypeTaskAdded, TypeTaskProgress, TypeTaskProgress, TypeTaskMetadata, TypeTaskFinished}
	for _, typ := range want {
		bus.Publish(Event{Type: typ, TaskID: "t1"})
	}
	bus.Close()
	bus.Wait()

	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, expected %s", i, got[i], want[i])
		}
	}
}

func TestBus_FanOutToAllSubscribers(t *testing.T) {
	bus := NewBus(4, nil)

	var mu sync.Mutex
	counts := make(map[int]int)
	for i := 0; i < 3; i++ {
		id := i
		bus.Subscribe(func(ev Event) {
			mu.Lock()
			counts[id]++
			mu.Unlock()
		})
	}
	go bus.Run()

	bus.Publish(Event{Type: TypeTaskAdded})
	bus.Publish(Event{Type: TypeTaskFinished})
	bus.Close()
	bus.Wait()

	for id, count := range counts {
		if count != 2 {
			t.Errorf("subscriber %d saw %d events, expected 2", id, count)
		}
	}
	if len(counts) != 3 {
		t.Errorf("Expected 3 subscribers to fire, got %d", len(counts))
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(4, nil)

	var calls int
	unsubscribe := bus.Subscribe(func(ev Event) {
		calls++
	})
	go bus.Run()

	bus.Publish(Event{Type: TypeTaskAdded})
	unsubscribe()
	bus.Publish(Event{Type: TypeTaskFinished})
	bus.Close()
	bus.Wait()

	if calls > 1 {
		t.Errorf("unsubscribed handler was called %d times", calls)
	}
}

func TestBus_SubscriberPanicDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(4, nil)

	bus.Subscribe(func(ev Event) {
		panic("bad subscriber")
	})
	var survived int
	bus.Subscribe(func(ev Event) {
		survived++
	})
	go bus.Run()

	bus.Publish(Event{Type: TypeTaskAdded})
	bus.Publish(Event{Type: TypeTaskFinished})
	bus.Close()
	bus.Wait()

	if survived != 2 {
		t.Errorf("surviving subscriber saw %d events, expected 2", survived)
	}
}
