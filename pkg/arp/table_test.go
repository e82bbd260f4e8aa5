package arp

import (
	"testing"

	"github.com/sbcnet/coreip/pkg/wire"
)

func mac(b byte) wire.MACAddr { return wire.MACAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, b} }
func ip(b byte) wire.IPv4Addr { return wire.IPv4Addr{192, 168, 1, b} }

func TestQueryMiss(t *testing.T) {
	tbl := NewTable(2)
	if _, ok := tbl.Query(ip(1)); ok {
		t.Fatalf("Query on empty table should miss")
	}
}

func TestAddThenQueryHit(t *testing.T) {
	tbl := NewTable(2)
	if err := tbl.Add(ip(1), mac(1), Dynamic); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, ok := tbl.Query(ip(1))
	if !ok || got != mac(1) {
		t.Fatalf("Query = (%v, %v), want (%v, true)", got, ok, mac(1))
	}
}

func TestAddRefreshesExistingEntryAndResetsLRU(t *testing.T) {
	tbl := NewTable(2)
	_ = tbl.Add(ip(1), mac(1), Dynamic)
	_ = tbl.Add(ip(2), mac(2), Dynamic)
	// Refresh ip(1) with a new MAC: a later query must return the
	// last-seen MAC (the round-trip law in spec.md §8).
	if err := tbl.Add(ip(1), mac(9), Dynamic); err != nil {
		t.Fatalf("Add (refresh): %v", err)
	}
	got, ok := tbl.Query(ip(1))
	if !ok || got != mac(9) {
		t.Fatalf("Query after refresh = (%v, %v), want (%v, true)", got, ok, mac(9))
	}
}

func TestAddEvictsLowestLRUDynamicWhenFull(t *testing.T) {
	tbl := NewTable(2)
	_ = tbl.Add(ip(1), mac(1), Dynamic)
	_ = tbl.Add(ip(2), mac(2), Dynamic)
	// Touch ip(2) so ip(1) has the lowest lru and is the eviction victim.
	tbl.Query(ip(2))

	if err := tbl.Add(ip(3), mac(3), Dynamic); err != nil {
		t.Fatalf("Add into full table: %v", err)
	}
	if _, ok := tbl.Query(ip(1)); ok {
		t.Fatalf("ip(1) should have been evicted")
	}
	if _, ok := tbl.Query(ip(2)); !ok {
		t.Fatalf("ip(2) should still be present")
	}
	if _, ok := tbl.Query(ip(3)); !ok {
		t.Fatalf("ip(3) should have been inserted")
	}
}

func TestAddFullOfStaticFails(t *testing.T) {
	tbl := NewTable(1)
	_ = tbl.Add(ip(1), mac(1), Static)
	if err := tbl.Add(ip(2), mac(2), Dynamic); err != ErrTableFull {
		t.Fatalf("Add into all-static table = %v, want ErrTableFull", err)
	}
}

func TestUpdateMissingEntry(t *testing.T) {
	tbl := NewTable(1)
	if err := tbl.Update(ip(1), mac(1), Dynamic); err != ErrNoEntry {
		t.Fatalf("Update on absent entry = %v, want ErrNoEntry", err)
	}
}

func TestUpdateExistingEntry(t *testing.T) {
	tbl := NewTable(1)
	_ = tbl.Add(ip(1), mac(1), Dynamic)
	if err := tbl.Update(ip(1), mac(2), Static); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, ok := tbl.Query(ip(1))
	if !ok || got != mac(2) {
		t.Fatalf("Query after Update = (%v, %v), want (%v, true)", got, ok, mac(2))
	}
}
