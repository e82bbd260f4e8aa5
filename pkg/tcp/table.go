// Package tcp implements the TCP PCB registry, segment state machine,
// and retransmission per spec.md §4.8.
package tcp

import (
	"errors"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

var (
	ErrOutOfMemory   = errors.New("tcp: no free pcb")
	ErrBadID         = errors.New("tcp: invalid pcb id")
	ErrPortInUse     = errors.New("tcp: port already bound")
	ErrNotBound      = errors.New("tcp: pcb not bound")
	ErrNotListening  = errors.New("tcp: pcb not listening")
	ErrBadState      = errors.New("tcp: operation illegal in current state")
	ErrClosing       = errors.New("tcp: connection is closing")
)

// ErrRecvClosing is returned by Recv when the peer has sent FIN and the
// receive buffer is empty (spec.md §4.8.4 deviation: "recv returns CLOSING
// when the peer has sent FIN and the receive buffer is empty").
var ErrRecvClosing = errors.New("tcp: recv buffer closing")

// Defaults for the spec.md §6 configuration knobs this package owns.
const (
	DefaultPCBCount      = 8
	DefaultMSS           = 536
	DefaultWindow        = 4096
	DefaultDataBufSize   = 4096
	DefaultMSLMs         = 30_000
	DefaultHStateMs      = 30_000
	DefaultInitialRTOMs  = 1_000
	DefaultMaxRTOMs      = 60_000
	DefaultMaxRetransmits = 7
)

// Config collects the TCP-specific knobs spec.md §6 enumerates.
type Config struct {
	PCBCount       int
	MSS            uint16
	DefWindow      uint16
	DataBufSize    int
	MSLMs          int64
	HStateMs       int64
	InitialRTOMs   int64
	MaxRTOMs       int64
	MaxRetransmits int
}

// DefaultConfig returns the package's defaults.
func DefaultConfig() Config {
	return Config{
		PCBCount:       DefaultPCBCount,
		MSS:            DefaultMSS,
		DefWindow:      DefaultWindow,
		DataBufSize:    DefaultDataBufSize,
		MSLMs:          DefaultMSLMs,
		HStateMs:       DefaultHStateMs,
		InitialRTOMs:   DefaultInitialRTOMs,
		MaxRTOMs:       DefaultMaxRTOMs,
		MaxRetransmits: DefaultMaxRetransmits,
	}
}

// Table is the PCB registry (spec.md §4.8.2) and the stack's registered
// protocol handler for wire.ProtoTCP.
type Table struct {
	cfg  Config
	pcbs []pcb
	log  *logrus.Logger
}

// NewTable constructs a PCB table with cfg's fixed slot count.
func NewTable(cfg Config, log *logrus.Logger) *Table {
	if log == nil {
		log = logrus.StandardLogger()
	}
	pcbs := make([]pcb, cfg.PCBCount)
	for i := range pcbs {
		pcbs[i].id = i
	}
	return &Table{cfg: cfg, pcbs: pcbs, log: log}
}

func (t *Table) valid(id int) bool { return id >= 0 && id < len(t.pcbs) }

// byID returns the PCB at id, or nil if id is out of range.
func (t *Table) byID(id int) *pcb {
	if !t.valid(id) {
		return nil
	}
	return &t.pcbs[id]
}

// New allocates a FREE PCB (spec.md §4.8.2, new).
func (t *Table) New() (int, error) {
	for i := range t.pcbs {
		if t.pcbs[i].state == StateFree {
			t.pcbs[i].trace = xid.New()
			return i, nil
		}
	}
	return -1, ErrOutOfMemory
}

// Bind records the local (ip, port) and moves the PCB to BOUND (spec.md
// §4.8.2, bind).
func (t *Table) Bind(id int, ip wire.IPv4Addr, port uint16) error {
	if !t.valid(id) {
		return ErrBadID
	}
	if t.pcbs[id].state != StateFree && t.pcbs[id].state != StateBound {
		return ErrBadState
	}
	for i := range t.pcbs {
		if i == id || t.pcbs[i].state != StateListen && t.pcbs[i].state != StateBound {
			continue
		}
		if t.pcbs[i].localIP == ip && t.pcbs[i].localPort == port {
			return ErrPortInUse
		}
	}
	t.pcbs[id].localIP = ip
	t.pcbs[id].localPort = port
	t.pcbs[id].state = StateBound
	return nil
}

// Listen transitions a BOUND PCB to LISTEN (spec.md §4.8.2, listen).
func (t *Table) Listen(id int) error {
	if !t.valid(id) {
		return ErrBadID
	}
	if t.pcbs[id].state != StateBound {
		return ErrNotBound
	}
	t.pcbs[id].state = StateListen
	return nil
}

// Accept stores the accept callback for a LISTEN PCB (spec.md §4.8.2).
func (t *Table) Accept(id int, fn AcceptFunc) error {
	if !t.valid(id) {
		return ErrBadID
	}
	if t.pcbs[id].state != StateListen {
		return ErrNotListening
	}
	t.pcbs[id].accept = fn
	return nil
}

// Notify stores the notify callback (spec.md §4.8.2).
func (t *Table) Notify(id int, fn NotifyFunc) error {
	if !t.valid(id) {
		return ErrBadID
	}
	switch t.pcbs[id].state {
	case StateFree:
		return ErrBadState
	}
	t.pcbs[id].notify = fn
	return nil
}

// IsConnected reports whether the PCB is ESTABLISHED (spec.md §4.8.2).
func (t *Table) IsConnected(id int) bool {
	return t.valid(id) && t.pcbs[id].state == StateEstablished
}

// State returns the PCB's current state, for tests and metrics.
func (t *Table) State(id int) State {
	if !t.valid(id) {
		return StateFree
	}
	return t.pcbs[id].state
}

// StateCounts returns the number of PCBs currently in each state, for the
// metrics collector (pkg/metrics).
func (t *Table) StateCounts() map[State]int {
	counts := make(map[State]int)
	for i := range t.pcbs {
		counts[t.pcbs[i].state]++
	}
	return counts
}

// TotalRetransmits sums the retransmit counters across every PCB slot.
// Freeing a PCB zeroes its counters, so this is a point-in-time snapshot
// of currently-occupied slots, not a lifetime total.
func (t *Table) TotalRetransmits() int {
	n := 0
	for i := range t.pcbs {
		n += t.pcbs[i].stats.Retransmits
	}
	return n
}

// Capacity returns the fixed number of PCB slots.
func (t *Table) Capacity() int {
	return len(t.pcbs)
}

func (t *Table) resolveIface(s *stack.Stack, destIP wire.IPv4Addr) (*ifc.Interface, error) {
	route, err := s.RouteLookup(destIP)
	if err != nil {
		return nil, err
	}
	if route.IfIndex < 0 || route.IfIndex >= len(s.Interfaces) {
		return nil, stack.ErrNoRoute
	}
	return s.Interfaces[route.IfIndex], nil
}

// Connect picks ISS, records the remote endpoint, and sends a SYN (spec.md
// §4.8.2, connect). Requires the PCB to be BOUND.
func (t *Table) Connect(s *stack.Stack, id int, destIP wire.IPv4Addr, destPort uint16) error {
	if !t.valid(id) {
		return ErrBadID
	}
	p := &t.pcbs[id]
	if p.state != StateBound {
		return ErrBadState
	}
	iface, err := t.resolveIface(s, destIP)
	if err != nil {
		return err
	}

	p.remoteIP = destIP
	p.remotePort = destPort
	p.iss = uint32(s.Clock.NowMillis())
	p.sndUNA = p.iss
	p.sndNXT = p.iss + 1
	p.rcvWND = t.cfg.DefWindow
	p.sendBuf = newRing(t.cfg.DataBufSize)
	p.recvBuf = newRing(t.cfg.DataBufSize)
	p.stats.OpenedAtMs = s.Clock.NowMillis()
	p.lastActive = s.Clock.NowMillis()
	p.state = StateSynSent

	return t.sendSYN(s, iface, p, false)
}

// Send enqueues bytes into the PCB's send buffer and attempts immediate
// segmentation (spec.md §4.8.2, send; §4.8.4's send-must-segment
// deviation).
func (t *Table) Send(s *stack.Stack, id int, data []byte) (int, error) {
	if !t.valid(id) {
		return 0, ErrBadID
	}
	p := &t.pcbs[id]
	if p.state != StateEstablished && p.state != StateCloseWait {
		if p.state == StateClosing || p.state == StateFinWait1 || p.state == StateFinWait2 || p.state == StateLastAck || p.state == StateTimeWait {
			return 0, ErrClosing
		}
		return 0, ErrBadState
	}
	n := p.sendBuf.write(data)
	p.stats.SentBytes += uint64(n)
	if iface, err := t.resolveIface(s, p.remoteIP); err == nil {
		t.trySend(s, iface, p)
	}
	return n, nil
}

// Recv pulls up to len(buf) bytes from the receive buffer (spec.md §4.8.2,
// recv).
func (t *Table) Recv(id int, buf []byte) (int, error) {
	if !t.valid(id) {
		return 0, ErrBadID
	}
	p := &t.pcbs[id]
	if p.state == StateFree {
		return 0, ErrBadID
	}
	if p.recvBuf == nil {
		return 0, ErrBadState
	}
	n := p.recvBuf.read(buf)
	if n == 0 && p.gotFIN {
		return 0, ErrRecvClosing
	}
	return n, nil
}

// Close performs an orderly shutdown appropriate to the PCB's current
// state (spec.md §4.8.2, close; §4.8.4).
func (t *Table) Close(s *stack.Stack, id int) error {
	if !t.valid(id) {
		return ErrBadID
	}
	p := &t.pcbs[id]
	switch p.state {
	case StateFree, StateBound:
		p.reset()
		return nil
	case StateListen:
		p.reset()
		return nil
	case StateSynSent:
		p.reset()
		return nil
	case StateEstablished:
		if iface, err := t.resolveIface(s, p.remoteIP); err == nil {
			t.sendFIN(s, iface, p)
		}
		p.state = StateFinWait1
	case StateCloseWait:
		if iface, err := t.resolveIface(s, p.remoteIP); err == nil {
			t.sendFIN(s, iface, p)
		}
		p.state = StateLastAck
	default:
		// Already closing; nothing further to do.
	}
	return nil
}
