package arena

import "testing"

func TestArenaAllocAligned(t *testing.T) {
	a := New(64)
	p1 := a.Alloc(3)
	p2 := a.Alloc(3)
	if len(p1) != 3 || len(p2) != 3 {
		t.Fatalf("expected 3-byte slices, got %d and %d", len(p1), len(p2))
	}
	// p2 must start at an aligned offset beyond p1, never overlapping.
	for i := range p1 {
		p1[i] = 0xAA
	}
	for i := range p2 {
		p2[i] = 0xBB
	}
	for i := range p1 {
		if p1[i] != 0xAA {
			t.Fatalf("allocation overlap detected at byte %d", i)
		}
	}
}

func TestArenaOverflowsToNewBlock(t *testing.T) {
	a := New(16)
	a.Alloc(12)
	big := a.Alloc(100)
	if len(big) != 100 {
		t.Fatalf("expected 100-byte allocation, got %d", len(big))
	}
	if a.head == a.cur {
		t.Fatalf("expected allocation to overflow into a second block")
	}
}

func TestArenaReset(t *testing.T) {
	a := New(64)
	a.Alloc(10)
	a.Alloc(10)
	total, n := a.Stats()
	if total != 20 || n != 2 {
		t.Fatalf("unexpected stats before reset: total=%d n=%d", total, n)
	}
	a.Reset()
	total, n = a.Stats()
	if total != 0 || n != 0 {
		t.Fatalf("expected stats cleared after reset, got total=%d n=%d", total, n)
	}
	if a.cur != a.head {
		t.Fatalf("expected cur to rewind to head after reset")
	}
}

func TestStandaloneArenaIndependentOfOwner(t *testing.T) {
	done := make(chan []byte)
	go func() {
		s := NewStandalone(32)
		buf := s.Alloc(8)
		copy(buf, "hand-off")
		done <- buf
	}()
	buf := <-done
	if string(buf) != "hand-off" {
		t.Fatalf("expected payload to survive goroutine handoff, got %q", buf)
	}
}
