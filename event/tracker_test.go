package event

import "testing"

func TestTracker_CoalescesUntilRefresh(t *testing.T) {
	var (
		tr    Tracker
		emits int
	)

	tr.Sub(ChannelChange, func(*Message) { emits++ })

	if !tr.MarkChildren(Invalidate()) {
		t.Error("first mark did not emit")
	}

	if tr.MarkSelf(Invalidate()) || tr.MarkChildren(Invalidate()) {
		t.Error("mark while dirty emitted")
	}

	if emits != 1 {
		t.Fatalf("emits = %d, want 1", emits)
	}

	var ran string

	tr.Refresh(
		func() { ran = "self" },
		func() { ran = "children" },
	)

	if ran != "self" {
		t.Errorf("Refresh ran %q, want self", ran)
	}

	if tr.Dirty() {
		t.Error("still dirty after Refresh")
	}

	tr.MarkChildren(Invalidate())
	tr.Refresh(func() { ran = "self" }, func() { ran = "children" })

	if ran != "children" || emits != 2 {
		t.Errorf("ran = %q, emits = %d", ran, emits)
	}
}

func TestTracker_RefreshClean(t *testing.T) {
	var tr Tracker

	tr.Refresh(func() { t.Error("self ran while clean") }, nil)
	tr.MarkSelf(Invalidate())

	if !tr.SelfDirty() || tr.ChildrenDirty() {
		t.Error("unexpected flags after MarkSelf")
	}

	tr.Refresh(nil, nil)

	if tr.Dirty() {
		t.Error("nil refresh did not clean")
	}
}
