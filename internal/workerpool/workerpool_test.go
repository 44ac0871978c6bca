package workerpool

import (
	"errors"
	"testing"
	"time"

	"github.com/lus-lang/lus/internal/pledge"
)

func TestSerializeRoundTrip(t *testing.T) {
	cases := []Value{
		nil,
		true,
		false,
		int64(42),
		float64(3.5),
		"hello",
		map[any]Value{"a": int64(1), "b": "x"},
	}
	for _, v := range cases {
		data, err := Serialize(v)
		if err != nil {
			t.Fatalf("Serialize(%v): %v", v, err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if table, ok := v.(map[any]Value); ok {
			gotTable, ok := got.(map[any]Value)
			if !ok || len(gotTable) != len(table) {
				t.Fatalf("table round-trip mismatch: %v vs %v", table, got)
			}
			continue
		}
		if got != v {
			t.Fatalf("round trip mismatch: got %v, want %v", got, v)
		}
	}
}

func TestSerializeRejectsUnsupportedType(t *testing.T) {
	_, err := Serialize(func() {})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestSerializeRejectsExcessiveDepth(t *testing.T) {
	var v Value = int64(1)
	for i := 0; i < MaxDepth+5; i++ {
		v = map[any]Value{"k": v}
	}
	_, err := Serialize(v)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
}

type echoRunner struct{}

func (echoRunner) Run(w *Worker, _ *pledge.Store, args []Value) error {
	for _, a := range args {
		if err := w.Message(a); err != nil {
			return err
		}
	}
	return nil
}

type erroringRunner struct{}

func (erroringRunner) Run(_ *Worker, _ *pledge.Store, _ []Value) error {
	return errors.New("boom")
}

func TestWorkerCreateRunsAndDelivers(t *testing.T) {
	pool := newPool(2)
	defer pool.Shutdown()

	parent := pledge.New()
	w, err := Create(pool, echoRunner{}, parent, "script.lus", []Value{int64(7), "hi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	results, err := Receive(w)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if results[0] != int64(7) {
		t.Fatalf("expected first message 7, got %v", results[0])
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.Status() == StatusRunning && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.Status() != StatusDead {
		t.Fatalf("expected worker to finish, status=%v", w.Status())
	}
}

func TestWorkerErrorSurfacesOnReceive(t *testing.T) {
	pool := newPool(1)
	defer pool.Shutdown()

	parent := pledge.New()
	w, err := Create(pool, erroringRunner{}, parent, "bad.lus", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.Status() == StatusRunning && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.Status() != StatusError {
		t.Fatalf("expected status error, got %v", w.Status())
	}

	_, err = Receive(w)
	if err == nil {
		t.Fatalf("expected Receive to surface worker error")
	}
}

func TestReceivePositionalNilForNonReadyWorker(t *testing.T) {
	pool := newPool(2)
	defer pool.Shutdown()

	parent := pledge.New()
	ready, err := Create(pool, echoRunner{}, parent, "a.lus", []Value{int64(1)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	slow, err := Create(pool, &blockingRunner{release: make(chan struct{})}, parent, "b.lus", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer close(slow.runner.(*blockingRunner).release)

	results, err := Receive(ready, slow)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if results[0] != int64(1) {
		t.Fatalf("expected ready worker's message, got %v", results[0])
	}
	if results[1] != nil {
		t.Fatalf("expected nil for non-ready worker, got %v", results[1])
	}
}

type blockingRunner struct {
	release chan struct{}
}

func (r *blockingRunner) Run(_ *Worker, _ *pledge.Store, _ []Value) error {
	<-r.release
	return nil
}
