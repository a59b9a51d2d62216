package concurrency_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/internal/concurrency"
)

func TestReadyQueue_FIFO(t *testing.T) {
	q := concurrency.NewReadyQueue(0)
	for i := 1; i <= 100; i++ {
		if err := q.Push(api.TaskID(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Len() != 100 {
		t.Fatalf("expected 100 queued ids, got %d", q.Len())
	}
	for i := 1; i <= 100; i++ {
		id, ok := q.Pop()
		if !ok {
			t.Fatalf("queue drained early at %d", i)
		}
		if id != api.TaskID(i) {
			t.Fatalf("expected id %d, got %d", i, id)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue reported an item")
	}
}

func TestReadyQueue_BoundSurfacesExhaustion(t *testing.T) {
	q := concurrency.NewReadyQueue(2)
	if err := q.Push(1); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(2); err != nil {
		t.Fatal(err)
	}
	err := q.Push(3)
	if !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("rejected push changed queue length to %d", q.Len())
	}
	q.Pop()
	if err := q.Push(3); err != nil {
		t.Errorf("push after pop failed: %v", err)
	}
}

func TestReadyQueue_ConcurrentProducers(t *testing.T) {
	q := concurrency.NewReadyQueue(0)
	const producers, perProducer = 8, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Push(api.TaskID(base*perProducer + i))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[api.TaskID]bool)
	for {
		id, ok := q.Pop()
		if !ok {
			break
		}
		if seen[id] {
			t.Fatalf("id %d delivered twice", id)
		}
		seen[id] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d ids, got %d", producers*perProducer, len(seen))
	}
	if got := q.Stats()["ready_pushed"]; got != producers*perProducer {
		t.Errorf("ready_pushed = %d", got)
	}
}
