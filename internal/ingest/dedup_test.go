package ingest

import "testing"

func TestDeliveryGuardSuppressesRepeats(t *testing.T) {
	guard, err := newDeliveryGuard(16)
	if err != nil {
		t.Fatalf("create guard: %v", err)
	}

	if guard.seen("s1", "e1") {
		t.Fatal("first delivery reported as seen")
	}
	if !guard.seen("s1", "e1") {
		t.Fatal("repeat delivery not suppressed")
	}
	if guard.seen("s2", "e1") {
		t.Fatal("sessions must not share dedup state")
	}
}

func TestDeliveryGuardIgnoresMissingIDs(t *testing.T) {
	guard, err := newDeliveryGuard(16)
	if err != nil {
		t.Fatalf("create guard: %v", err)
	}

	if guard.seen("s1", "") {
		t.Fatal("event without id must always pass")
	}
	if guard.seen("s1", "") {
		t.Fatal("event without id must always pass")
	}
	if guard.seen("", "e1") {
		t.Fatal("event without session must always pass")
	}
}

func TestDeliveryGuardEvictsOldEntries(t *testing.T) {
	guard, err := newDeliveryGuard(2)
	if err != nil {
		t.Fatalf("create guard: %v", err)
	}

	guard.seen("s1", "e1")
	guard.seen("s1", "e2")
	guard.seen("s1", "e3")

	// e1 was evicted by the two newer ids, so it passes again.
	if guard.seen("s1", "e1") {
		t.Fatal("evicted id should no longer be seen")
	}
}

func TestDeliveryGuardRejectsBadSize(t *testing.T) {
	if _, err := newDeliveryGuard(0); err == nil {
		t.Fatal("expected error for non-positive cache size")
	}
}
