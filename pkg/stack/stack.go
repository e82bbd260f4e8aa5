// Package stack implements the central registry spec.md §4.2 describes:
// the route table, the ethertype and protocol dispatch tables, and the
// timer wheel, plus the process-wide singletons (pbuf pool, interface
// list) spec.md §5 calls out as shared-but-single-threaded state.
package stack

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sbcnet/coreip/pkg/clock"
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

// DefaultRouteTableSize bounds the route table (spec.md §3 gives the entry
// shape but leaves the table size to the implementation).
const DefaultRouteTableSize = 4

var (
	ErrRouteTableFull = errors.New("stack: route table full")
	ErrNoRoute        = errors.New("stack: no route to destination")
)

// Route is one routing table entry (spec.md §3). An empty slot has a zero
// NetMask and Gateway. The stored DestNet always equals Gateway&NetMask,
// the invariant spec.md §3 states for route entries.
type Route struct {
	DestNet wire.IPv4Addr
	NetMask wire.IPv4Addr
	Gateway wire.IPv4Addr
	IfIndex int
}

func (r Route) empty() bool {
	return r.Gateway.IsZero() && r.NetMask.IsZero()
}

// EthertypeHandler processes one inbound frame dispatched by Ethertype
// (spec.md §4.9). raw is the full frame including its Ethernet header.
type EthertypeHandler func(s *Stack, iface *ifc.Interface, raw []byte) error

// ProtocolHandler processes one inbound IPv4 payload dispatched by IP
// protocol number (spec.md §4.2, set_protocol_handler; §4.4 step 3).
// payload is the IPv4 payload only (header and options stripped); handlers
// allocate their own reply pbufs from iface's pool.
type ProtocolHandler func(s *Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, payload []byte) error

// Timer is a periodic callback registered with SetTimer (spec.md §4.2).
type Timer struct {
	IntervalMs int64
	Fn         func()
	lastFired  int64
	armed      bool
}

// Stack is the central registry (spec.md §4.2). The zero value is not
// usable; construct with New.
type Stack struct {
	HostName string
	Pool     *pbuf.Pool
	Clock    clock.Clock
	Log      *logrus.Logger

	Interfaces []*ifc.Interface

	routes [DefaultRouteTableSize]Route

	ethHandlers   map[wire.Ethertype]EthertypeHandler
	protoHandlers map[uint8]ProtocolHandler

	timers []*Timer
}

// New builds an empty registry (spec.md §4.2, stack_init) around the
// process-wide singleton pool and a monotonic clock. It does not change the
// state of the pool's buffers: buffers already IN_USE stay IN_USE.
func New(hostName string, pool *pbuf.Pool, clk clock.Clock, log *logrus.Logger) *Stack {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Stack{
		HostName:      hostName,
		Pool:          pool,
		Clock:         clk,
		Log:           log,
		ethHandlers:   make(map[wire.Ethertype]EthertypeHandler),
		protoHandlers: make(map[uint8]ProtocolHandler),
	}
}

// AddInterface registers an interface with the stack.
func (s *Stack) AddInterface(i *ifc.Interface) {
	s.Interfaces = append(s.Interfaces, i)
}

// SetEthertypeHandler records the dispatcher for a link-layer ethertype.
func (s *Stack) SetEthertypeHandler(t wire.Ethertype, fn EthertypeHandler) {
	s.ethHandlers[t] = fn
}

// EthertypeHandler returns the registered handler for t, if any.
func (s *Stack) EthertypeHandler(t wire.Ethertype) (EthertypeHandler, bool) {
	fn, ok := s.ethHandlers[t]
	return fn, ok
}

// SetProtocolHandler records the ICMP/UDP/TCP input dispatcher for an IP
// protocol number (spec.md §4.2).
func (s *Stack) SetProtocolHandler(proto uint8, fn ProtocolHandler) {
	s.protoHandlers[proto] = fn
}

// ProtocolHandler returns the registered handler for proto, if any.
func (s *Stack) ProtocolHandler(proto uint8) (ProtocolHandler, bool) {
	fn, ok := s.protoHandlers[proto]
	return fn, ok
}

// SetRoute inserts a route into the first empty slot. DestNet is derived
// as gateway&mask, per the route-entry invariant (spec.md §3, §4.2).
func (s *Stack) SetRoute(mask, gateway wire.IPv4Addr, ifIndex int) error {
	for i := range s.routes {
		if s.routes[i].empty() {
			s.routes[i] = Route{
				DestNet: gateway.Mask(mask),
				NetMask: mask,
				Gateway: gateway,
				IfIndex: ifIndex,
			}
			return nil
		}
	}
	return ErrRouteTableFull
}

// RouteLookup returns the first route whose DestNet matches destIp&NetMask,
// else the default route (NetMask==0), else ErrNoRoute (spec.md §4.2).
func (s *Stack) RouteLookup(destIP wire.IPv4Addr) (Route, error) {
	var def Route
	haveDefault := false
	for _, r := range s.routes {
		if r.empty() {
			continue
		}
		if r.NetMask.IsZero() {
			def = r
			haveDefault = true
			continue
		}
		if destIP.Mask(r.NetMask) == r.DestNet {
			return r, nil
		}
	}
	if haveDefault {
		return def, nil
	}
	return Route{}, ErrNoRoute
}

// SetTimer registers a periodic callback (spec.md §4.2).
func (s *Stack) SetTimer(intervalMs int64, fn func()) *Timer {
	t := &Timer{IntervalMs: intervalMs, Fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Timers fires every due timer, in registration order, using the
// stack's monotonic clock (spec.md §4.2, §5: "stack_timers is not
// re-entrant" — callers must not call Timers from within a timer
// callback).
func (s *Stack) Timers() {
	now := s.Clock.NowMillis()
	for _, t := range s.timers {
		if !t.armed {
			t.lastFired = now
			t.armed = true
			continue
		}
		if now-t.lastFired >= t.IntervalMs {
			t.lastFired = now
			t.Fn()
		}
	}
}
