// Package pbuf implements the stack's packet buffer pool (spec.md §4.1): a
// small, fixed-size array of MTU-sized frames with exactly two states,
// FREE and IN_USE, and no refcounting. A pbuf is owned by exactly one call
// site at a time; every path that receives one in IN_USE state must Free
// it on every exit, including error paths.
package pbuf

import "errors"

// ErrOutOfMemory is returned by Allocate when every buffer in the pool is
// IN_USE (spec.md §7 "No resource").
var ErrOutOfMemory = errors.New("pbuf: pool exhausted")

// DefaultMTU is the default maximum transmission unit (spec.md §6).
const DefaultMTU = 1500

// HeaderRoom is extra headroom reserved ahead of the IP payload in each
// frame for the Ethernet header, so IPv4 output can fill in link-layer
// fields without a second allocation or a copy (spec.md §3: "allocator
// returns one whole frame including link-layer headroom").
const HeaderRoom = 14

// DefaultFrameSize is at least MTU + link header size (spec.md §3: "≥1536
// bytes" for a 1500-byte MTU).
const DefaultFrameSize = DefaultMTU + HeaderRoom + 22

// DefaultPoolSize is the typical pool size (spec.md §4.1: "typical size
// 8").
const DefaultPoolSize = 8

type state uint8

const (
	stateFree state = iota
	stateInUse
)

// Pbuf is a single frame-sized buffer slot. Len is the valid byte count;
// Data is the full fixed-size backing array view.
type Pbuf struct {
	Data []byte
	Len  int

	state state
}

// Bytes returns the valid portion of the buffer (Data[:Len]).
func (p *Pbuf) Bytes() []byte {
	return p.Data[:p.Len]
}

// Pool is the fixed array of buffers described in spec.md §4.1. The zero
// value is not usable; construct with New.
type Pool struct {
	bufs     []Pbuf
	frameLen int
}

// New allocates a pool of n frameLen-sized buffers. Unlike sync.Pool, Pool
// never grows, never shrinks, and never reclaims a buffer the caller did
// not explicitly Free — a hand-rolled fixed array is the correct shape
// for the bounded-memory ownership model spec.md §3 and §7 describe (see
// DESIGN.md).
func New(n, frameLen int) *Pool {
	p := &Pool{bufs: make([]Pbuf, n), frameLen: frameLen}
	for i := range p.bufs {
		p.bufs[i].Data = make([]byte, frameLen)
	}
	return p
}

// NewDefault builds a pool with the spec's typical size and frame length.
func NewDefault() *Pool {
	return New(DefaultPoolSize, DefaultFrameSize)
}

// Allocate returns the first FREE buffer, marks it IN_USE, and resets Len
// to 0. Returns ErrOutOfMemory if every buffer is IN_USE.
func (p *Pool) Allocate() (*Pbuf, error) {
	for i := range p.bufs {
		if p.bufs[i].state == stateFree {
			p.bufs[i].state = stateInUse
			p.bufs[i].Len = 0
			return &p.bufs[i], nil
		}
	}
	return nil, ErrOutOfMemory
}

// Free marks buf FREE. Freeing an already-FREE buffer is a no-op; freeing
// a buffer this pool did not allocate is a caller bug and is silently
// ignored in production builds (no asserts on invariants, spec.md §9).
func (p *Pool) Free(buf *Pbuf) {
	if buf == nil {
		return
	}
	buf.state = stateFree
}

// InUse reports the number of buffers currently allocated, for the
// metrics collector (spec.md §2 item 2, pbuf pool occupancy).
func (p *Pool) InUse() int {
	n := 0
	for i := range p.bufs {
		if p.bufs[i].state == stateInUse {
			n++
		}
	}
	return n
}

// Capacity returns the fixed number of buffers in the pool.
func (p *Pool) Capacity() int {
	return len(p.bufs)
}
