package tcp

import (
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/ipv4"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

// maxSegmentBuf bounds the scratch buffer a single TCP segment is built
// into; large enough for header, options, and an MSS-sized payload.
const maxSegmentBuf = 1600

func (t *Table) send(s *stack.Stack, iface *ifc.Interface, p *pcb, seg outSeg) error {
	buf, err := iface.BufPool().Allocate()
	if err != nil {
		return err
	}

	scratch := buf.Data[wire.EthernetHeaderLen+wire.IPv4HeaderLen:]
	n := buildSegment(scratch, p.localIP, p.remoteIP, seg, uint32(s.Clock.NowMillis()), p.peerTSVal)
	buf.Len = wire.EthernetHeaderLen + wire.IPv4HeaderLen + n

	return ipv4.Output(s, iface, buf, p.remoteIP, wire.ProtoTCP, n, iface.NextID())
}

func (t *Table) sendSYN(s *stack.Stack, iface *ifc.Interface, p *pcb, ack bool) error {
	flags := uint8(wire.FlagSYN)
	if ack {
		flags |= wire.FlagACK
	}
	err := t.send(s, iface, p, outSeg{
		srcPort: p.localPort, dstPort: p.remotePort,
		seq: p.iss, ack: p.rcvNXT, flags: flags,
		window: p.rcvWND, mss: t.cfg.MSS, withSYNOptions: true,
	})
	t.armRetransmit(p, p.iss, 0, flags)
	return err
}

func (t *Table) sendACK(s *stack.Stack, iface *ifc.Interface, p *pcb) error {
	return t.send(s, iface, p, outSeg{
		srcPort: p.localPort, dstPort: p.remotePort,
		seq: p.sndNXT, ack: p.rcvNXT, flags: wire.FlagACK,
		window: windowFor(p),
	})
}

func (t *Table) sendFIN(s *stack.Stack, iface *ifc.Interface, p *pcb) error {
	seq := p.sndNXT
	err := t.send(s, iface, p, outSeg{
		srcPort: p.localPort, dstPort: p.remotePort,
		seq: seq, ack: p.rcvNXT, flags: wire.FlagFIN | wire.FlagACK,
		window: windowFor(p),
	})
	t.armRetransmit(p, seq, 0, wire.FlagFIN|wire.FlagACK)
	p.sndNXT++
	return err
}

func sendRSTTo(s *stack.Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, srcPort, dstPort uint16, seq, ack uint32, withACK bool) error {
	buf, err := iface.BufPool().Allocate()
	if err != nil {
		return err
	}
	scratch := buf.Data[wire.EthernetHeaderLen+wire.IPv4HeaderLen:]

	flags := uint8(wire.FlagRST)
	var n int
	if withACK {
		flags |= wire.FlagACK
		n = buildSegment(scratch, srcIP, dstIP, outSeg{
			srcPort: srcPort, dstPort: dstPort, seq: seq, ack: ack, flags: flags,
		}, 0, 0)
	} else {
		n = buildRST(scratch, srcIP, dstIP, srcPort, dstPort, seq)
	}
	buf.Len = wire.EthernetHeaderLen + wire.IPv4HeaderLen + n
	return ipv4.Output(s, iface, buf, dstIP, wire.ProtoTCP, n, iface.NextID())
}

func windowFor(p *pcb) uint16 {
	if p.recvBuf == nil {
		return 0
	}
	free := p.recvBuf.free()
	if free < 0 {
		return 0
	}
	if free > 0xffff {
		return 0xffff
	}
	return uint16(free)
}

// trySend segments unsent bytes in the send buffer into at most
// MSS-sized segments, bounded by the peer's advertised window (spec.md
// §4.8.4's send deviation).
func (t *Table) trySend(s *stack.Stack, iface *ifc.Interface, p *pcb) {
	if p.retx != nil {
		return // one outstanding retransmit-tracked segment at a time
	}
	if p.state != StateEstablished && p.state != StateCloseWait {
		return
	}

	inFlight := p.sndNXT - p.sndUNA
	avail := uint32(0)
	if uint32(p.sndWND) > inFlight {
		avail = uint32(p.sndWND) - inFlight
	}
	if avail == 0 {
		return
	}

	unsent := p.sendBuf.used() - int(inFlight)
	if unsent <= 0 {
		return
	}
	segLen := unsent
	if segLen > int(avail) {
		segLen = int(avail)
	}
	if segLen > int(t.cfg.MSS) {
		segLen = int(t.cfg.MSS)
	}

	data := make([]byte, segLen)
	peekWithOffset(p.sendBuf, int(inFlight), data)

	seq := p.sndNXT
	if err := t.send(s, iface, p, outSeg{
		srcPort: p.localPort, dstPort: p.remotePort,
		seq: seq, ack: p.rcvNXT, flags: wire.FlagACK | wire.FlagPSH,
		window: windowFor(p), data: data,
	}); err == nil {
		p.sndNXT += uint32(segLen)
	}
	t.armRetransmit(p, seq, segLen, wire.FlagACK|wire.FlagPSH)
}

// peekWithOffset copies len(dst) bytes starting offset bytes into r's
// unconsumed data, without discarding anything.
func peekWithOffset(r *ring, offset int, dst []byte) {
	tmp := make([]byte, offset+len(dst))
	n := r.peek(tmp)
	if n <= offset {
		return
	}
	copy(dst, tmp[offset:n])
}
