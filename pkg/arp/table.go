// Package arp implements the ARP resolver and output gatekeeper (spec.md
// §4.3): a per-interface address cache, the request/reply input handler,
// and the output gate that drops outbound IP packets whose next hop is not
// yet resolved.
package arp

import (
	"errors"

	"github.com/sbcnet/coreip/pkg/wire"
)

// Flags classifies a table entry (spec.md §3).
type Flags uint8

const (
	Empty Flags = iota
	Static
	Dynamic
)

// ErrTableFull is returned by Add when every slot holds a Static entry and
// none can be evicted (spec.md §4.3).
var ErrTableFull = errors.New("arp: table full")

// ErrNoEntry is returned by Update when no entry exists for the address
// (spec.md §4.3).
var ErrNoEntry = errors.New("arp: no entry")

// DefaultTableLength is the spec's default per-interface ARP cache size
// (spec.md §6, ARP_TABLE_LENGTH).
const DefaultTableLength = 10

// entry is one slot: (ipv4, mac, flags, lru) (spec.md §3).
type entry struct {
	ip    wire.IPv4Addr
	mac   wire.MACAddr
	flags Flags
	lru   uint64
}

// Table is a fixed-length ARP cache. At most one entry exists per IPv4
// address (spec.md §3 invariant); eviction replaces the DYNAMIC entry with
// the lowest lru counter, never a STATIC one.
type Table struct {
	entries []entry
	clock   uint64
}

// NewTable constructs a table with the given fixed capacity.
func NewTable(capacity int) *Table {
	return &Table{entries: make([]entry, capacity)}
}

func (t *Table) tick() uint64 {
	t.clock++
	return t.clock
}

func (t *Table) find(ip wire.IPv4Addr) int {
	for i := range t.entries {
		if t.entries[i].flags != Empty && t.entries[i].ip == ip {
			return i
		}
	}
	return -1
}

// Query looks up ip, bumping its lru counter on a hit (spec.md §4.3).
func (t *Table) Query(ip wire.IPv4Addr) (wire.MACAddr, bool) {
	i := t.find(ip)
	if i < 0 {
		return wire.MACAddr{}, false
	}
	t.entries[i].lru = t.tick()
	return t.entries[i].mac, true
}

// Add inserts ip/mac as a new entry, or refreshes the existing entry for
// ip in place — the "learn on reply" rule (spec.md §4.3) and the
// round-trip law that a later query(X) returns the last-seen MAC with the
// LRU count reset. If the table is full and holds no DYNAMIC entry to
// evict, ErrTableFull is returned.
func (t *Table) Add(ip wire.IPv4Addr, mac wire.MACAddr, flags Flags) error {
	if i := t.find(ip); i >= 0 {
		t.entries[i].mac = mac
		t.entries[i].flags = flags
		t.entries[i].lru = t.tick()
		return nil
	}

	for i := range t.entries {
		if t.entries[i].flags == Empty {
			t.entries[i] = entry{ip: ip, mac: mac, flags: flags, lru: t.tick()}
			return nil
		}
	}

	victim := -1
	for i := range t.entries {
		if t.entries[i].flags != Dynamic {
			continue
		}
		if victim < 0 || t.entries[i].lru < t.entries[victim].lru {
			victim = i
		}
	}
	if victim < 0 {
		return ErrTableFull
	}
	t.entries[victim] = entry{ip: ip, mac: mac, flags: flags, lru: t.tick()}
	return nil
}

// Update overwrites an existing entry's mac/flags. Returns ErrNoEntry if
// ip is not present (spec.md §4.3).
func (t *Table) Update(ip wire.IPv4Addr, mac wire.MACAddr, flags Flags) error {
	i := t.find(ip)
	if i < 0 {
		return ErrNoEntry
	}
	t.entries[i].mac = mac
	t.entries[i].flags = flags
	t.entries[i].lru = t.tick()
	return nil
}

// Evict removes the entry for ip, if present. Used only for tests and
// administrative cleanup; the core never calls this on its own.
func (t *Table) Evict(ip wire.IPv4Addr) {
	if i := t.find(ip); i >= 0 {
		t.entries[i] = entry{}
	}
}

// Len returns the number of occupied slots, for the metrics collector.
func (t *Table) Len() int {
	n := 0
	for i := range t.entries {
		if t.entries[i].flags != Empty {
			n++
		}
	}
	return n
}

// Capacity returns the fixed table size.
func (t *Table) Capacity() int {
	return len(t.entries)
}
