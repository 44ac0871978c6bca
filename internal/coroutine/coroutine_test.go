package coroutine

import "testing"

func TestUnknownHandleReadsZeroValueWithoutAllocating(t *testing.T) {
	tbl := NewTable()
	h := "co-1"
	if tbl.IsDetached(h) {
		t.Fatalf("expected unknown handle to report not detached")
	}
	if _, ok := tbl.Yield(h); ok {
		t.Fatalf("expected unknown handle to report no yield descriptor")
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected reads to not create entries, got len=%d", tbl.Len())
	}
}

func TestSetDetachedAndYield(t *testing.T) {
	tbl := NewTable()
	h := "co-1"
	tbl.SetDetached(h, true)
	if !tbl.IsDetached(h) {
		t.Fatalf("expected handle to be detached")
	}

	tbl.SetYield(h, Descriptor{Reason: IOWait, FD: 7, Events: 1})
	d, ok := tbl.Yield(h)
	if !ok || d.Reason != IOWait || d.FD != 7 {
		t.Fatalf("unexpected yield descriptor: %+v ok=%v", d, ok)
	}

	tbl.ClearYield(h)
	if _, ok := tbl.Yield(h); ok {
		t.Fatalf("expected yield descriptor to be cleared")
	}
	if !tbl.IsDetached(h) {
		t.Fatalf("expected detached flag to survive ClearYield")
	}

	tbl.Forget(h)
	if tbl.Len() != 0 {
		t.Fatalf("expected Forget to remove the entry")
	}
}
