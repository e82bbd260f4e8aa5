// Package udp implements the UDP PCB table and datagram path (spec.md
// §4.7).
package udp

import (
	"errors"

	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/ipv4"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

var (
	ErrOutOfMemory = errors.New("udp: no free pcb")
	ErrPortInUse   = errors.New("udp: port already bound")
	ErrBadID       = errors.New("udp: invalid pcb id")
)

// RecvFunc is a UDP delivery callback. It does not own payload's backing
// array beyond the call (spec.md §4.7: "the dispatcher frees it on
// return").
type RecvFunc func(payload []byte, srcIP wire.IPv4Addr, srcPort uint16)

type pcbState uint8

const (
	stateFree pcbState = iota
	stateBound
)

type pcb struct {
	state    pcbState
	localIP  wire.IPv4Addr
	localPort uint16
	recv     RecvFunc
}

// DefaultPCBCount is the default number of UDP connection slots (spec.md
// §6, TCP_PCB_COUNT's UDP analogue).
const DefaultPCBCount = 8

// Table is the PCB registry and the stack's registered protocol handler
// for wire.ProtoUDP.
type Table struct {
	pcbs []pcb
}

// NewTable constructs a table with the given fixed number of PCB slots.
func NewTable(n int) *Table {
	return &Table{pcbs: make([]pcb, n)}
}

// New allocates a FREE PCB and returns its id (spec.md §4.7, udp_new).
func (t *Table) New() (int, error) {
	for i := range t.pcbs {
		if t.pcbs[i].state == stateFree {
			return i, nil
		}
	}
	return -1, ErrOutOfMemory
}

// Bind transitions a PCB to BOUND, failing if (ip, port) is already taken
// by another PCB (spec.md §4.7, udp_bind).
func (t *Table) Bind(id int, ip wire.IPv4Addr, port uint16) error {
	if id < 0 || id >= len(t.pcbs) {
		return ErrBadID
	}
	for i := range t.pcbs {
		if i == id || t.pcbs[i].state != stateBound {
			continue
		}
		if t.pcbs[i].localIP == ip && t.pcbs[i].localPort == port {
			return ErrPortInUse
		}
	}
	t.pcbs[id] = pcb{state: stateBound, localIP: ip, localPort: port, recv: t.pcbs[id].recv}
	return nil
}

// Recv registers the delivery callback for a PCB (spec.md §4.7, udp_recv).
func (t *Table) Recv(id int, fn RecvFunc) error {
	if id < 0 || id >= len(t.pcbs) {
		return ErrBadID
	}
	t.pcbs[id].recv = fn
	return nil
}

// Close returns a PCB to FREE.
func (t *Table) Close(id int) {
	if id < 0 || id >= len(t.pcbs) {
		return
	}
	t.pcbs[id] = pcb{}
}

func (t *Table) find(ip wire.IPv4Addr, port uint16) *pcb {
	for i := range t.pcbs {
		if t.pcbs[i].state == stateBound && t.pcbs[i].localIP == ip && t.pcbs[i].localPort == port {
			return &t.pcbs[i]
		}
	}
	return nil
}

// SendTo builds and transmits a UDP datagram from the given bound PCB
// (spec.md §4.7, udp_sendto).
func (t *Table) SendTo(s *stack.Stack, iface *ifc.Interface, id int, data []byte, destIP wire.IPv4Addr, destPort uint16) error {
	if id < 0 || id >= len(t.pcbs) || t.pcbs[id].state != stateBound {
		return ErrBadID
	}
	src := t.pcbs[id]

	buf, err := iface.BufPool().Allocate()
	if err != nil {
		return pbuf.ErrOutOfMemory
	}

	total := wire.IPv4HeaderLen + wire.UDPHeaderLen + len(data)
	n := wire.EthernetHeaderLen + total
	buf.Len = n

	hdr := wire.UDPHeader(buf.Data[wire.EthernetHeaderLen+wire.IPv4HeaderLen : n])
	hdr.SetSrcPort(src.localPort)
	hdr.SetDstPort(destPort)
	hdr.SetLength(uint16(wire.UDPHeaderLen + len(data)))
	copy(hdr.Payload(), data)
	hdr.ComputeChecksum(src.localIP, destIP)

	return ipv4.Output(s, iface, buf, destIP, wire.ProtoUDP, wire.UDPHeaderLen+len(data), iface.NextID())
}

// Input is registered as the stack's ProtocolHandler for wire.ProtoUDP
// (spec.md §4.7: validate checksum, locate the bound PCB, invoke its
// callback, drop if none).
func (t *Table) Input(s *stack.Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, payload []byte) error {
	if len(payload) < wire.UDPHeaderLen {
		iface.DropInput()
		return nil
	}
	hdr := wire.UDPHeader(payload)
	if int(hdr.Length()) > len(payload) {
		iface.DropInput()
		return nil
	}
	if !hdr.VerifyChecksum(srcIP, dstIP) {
		iface.DropInput()
		return nil
	}

	p := t.find(dstIP, hdr.DstPort())
	if p == nil {
		iface.DropInput()
		return nil
	}
	if p.recv != nil {
		p.recv(hdr.Payload(), srcIP, hdr.SrcPort())
	}
	return nil
}
