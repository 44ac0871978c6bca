package threadpool

import (
	"errors"
	"syscall"
	"testing"
	"time"
)

func TestSubmitAndPoll(t *testing.T) {
	p := New(2)
	defer p.Destroy()

	task := &Task{Work: func() (any, error) { return 42, nil }}
	p.Submit(task)

	deadline := time.Now().Add(2 * time.Second)
	for !task.Done() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !task.Done() {
		t.Fatalf("task did not complete in time")
	}
	result, err := task.Result()
	if err != nil || result != 42 {
		t.Fatalf("unexpected result=%v err=%v", result, err)
	}

	drained := p.Poll(10)
	if len(drained) != 1 || drained[0] != task {
		t.Fatalf("expected task in completion queue, got %v", drained)
	}
}

func TestSubmitPropagatesError(t *testing.T) {
	p := New(1)
	defer p.Destroy()

	wantErr := errors.New("boom")
	task := &Task{Work: func() (any, error) { return nil, wantErr }}
	p.Submit(task)

	deadline := time.Now().Add(2 * time.Second)
	for !task.Done() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_, err := task.Result()
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestPanicIsRecoveredAsError(t *testing.T) {
	p := New(1)
	defer p.Destroy()

	task := &Task{Work: func() (any, error) { panic("kaboom") }}
	p.Submit(task)

	deadline := time.Now().Add(2 * time.Second)
	for !task.Done() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_, err := task.Result()
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
}

func TestNotifyFDSignalsOnCompletion(t *testing.T) {
	p := New(1)
	defer p.Destroy()

	fd := p.NotifyFD()
	if fd < 0 {
		t.Skip("notify pipe unavailable on this platform")
	}

	task := &Task{Work: func() (any, error) { return nil, nil }}
	p.Submit(task)

	deadline := time.Now().Add(2 * time.Second)
	for !task.Done() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !task.Done() {
		t.Fatalf("task did not complete in time")
	}

	buf := make([]byte, 1)
	for {
		n, err := syscall.Read(fd, buf)
		if n == 1 {
			break
		}
		if err != nil && err != syscall.EAGAIN {
			t.Fatalf("reading notify fd: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("no notification byte on the notify fd after completion")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDestroyStopsAcceptingTasks(t *testing.T) {
	p := New(1)
	p.Destroy()

	task := &Task{Work: func() (any, error) { return 1, nil }}
	p.Submit(task)
	time.Sleep(10 * time.Millisecond)
	if task.Done() {
		t.Fatalf("task submitted after Destroy should never run")
	}
}
