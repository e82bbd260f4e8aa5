package tcp

import (
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/xid"

	"github.com/sbcnet/coreip/pkg/wire"
)

// State is one of the RFC 793 connection states this core implements
// (spec.md §4.8.4).
type State uint8

const (
	StateFree State = iota
	StateBound
	StateListen
	StateSynSent
	StateSynReceived
	StateEstablished
	StateFinWait1
	StateFinWait2
	StateCloseWait
	StateClosing
	StateLastAck
	StateTimeWait
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateBound:
		return "BOUND"
	case StateListen:
		return "LISTEN"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynReceived:
		return "SYN_RECEIVED"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinWait1:
		return "FIN_WAIT1"
	case StateFinWait2:
		return "FIN_WAIT2"
	case StateCloseWait:
		return "CLOSE_WAIT"
	case StateClosing:
		return "CLOSING"
	case StateLastAck:
		return "LAST_ACK"
	case StateTimeWait:
		return "TIME_WAIT"
	default:
		return "UNKNOWN"
	}
}

// NotifyEvent is the reason a notify callback fired (spec.md §4.8.2,
// §4.8.4).
type NotifyEvent uint8

const (
	EventRemoteReset NotifyEvent = iota
	EventClose
	EventDataArrived
	EventConnected
)

// AcceptFunc is invoked when a LISTEN PCB spawns a new connection PCB
// (spec.md §4.8.2, accept).
type AcceptFunc func(id int)

// NotifyFunc is invoked for close/reset/data events (spec.md §4.8.2,
// notify).
type NotifyFunc func(id int, event NotifyEvent)

// retransmitItem is the single outstanding unacknowledged segment a PCB
// may have in flight at a time (spec.md §4.8.4's retransmission deviation:
// "a single outstanding retransmit timer based on the oldest un-ACKed
// byte").
type retransmitItem struct {
	seq      uint32
	dataLen  int
	flags    uint8
	deadline int64
	attempts int
	bo       *backoff.ExponentialBackOff
}

// pcb is one TCP connection/listener slot.
type pcb struct {
	id    int
	state State
	trace xid.ID

	localIP, remoteIP     wire.IPv4Addr
	localPort, remotePort uint16

	// Send sequence variables (RFC 793 §3.2).
	sndUNA, sndNXT uint32
	sndWND         uint16
	sndWL1, sndWL2 uint32
	iss            uint32

	// Receive sequence variables.
	rcvNXT uint32
	rcvWND uint16
	irs    uint32

	sendBuf, recvBuf *ring

	peerFINSeq uint32
	gotFIN     bool
	peerTSVal  uint32

	retx       *retransmitItem
	lastActive int64

	accept AcceptFunc
	notify NotifyFunc

	// listenOwner points a spawned active PCB back at the listener it
	// came from, so accept() on that listener is the one invoked.
	listenOwner int

	stats Stats
}

// Stats mirrors the open/close timestamps and byte counters a supervising
// application can read off a connection, in the spirit of the teacher's
// Conn stats block.
type Stats struct {
	OpenedAtMs int64
	ClosedAtMs int64
	SentBytes  uint64
	RecvBytes  uint64
	Retransmits int
}

func (p *pcb) reset() {
	id := p.id
	*p = pcb{}
	p.id = id
}

func (p *pcb) isSynchronized() bool {
	switch p.state {
	case StateEstablished, StateFinWait1, StateFinWait2, StateCloseWait, StateClosing, StateLastAck, StateTimeWait:
		return true
	default:
		return false
	}
}
