package tcp

import (
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

// Input is registered as the stack's ProtocolHandler for wire.ProtoTCP. It
// implements the incoming-segment processor spec.md §4.8.4 describes:
// check sequence, RST, SYN-in-window, ACK, text, FIN, in that order.
func (t *Table) Input(s *stack.Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, payload []byte) error {
	seg, ok := parseSegment(srcIP, dstIP, payload)
	if !ok {
		iface.DropInput()
		return nil
	}

	p := t.lookup(srcIP, dstIP, seg.srcPort, seg.dstPort)
	if p == nil {
		if seg.has(wire.FlagRST) {
			return nil
		}
		return t.sendResetForUnknown(s, iface, dstIP, srcIP, seg)
	}

	if p.state == StateListen {
		return t.handleListen(s, iface, p, srcIP, dstIP, seg)
	}

	p.lastActive = s.Clock.NowMillis()

	if p.state == StateSynSent {
		return t.handleSynSent(s, iface, p, seg)
	}

	return t.handleSynchronized(s, iface, p, seg)
}

// lookup implements spec.md §4.8.1: prefer an exact 4-tuple match in any
// non-LISTEN state, else a LISTEN PCB bound to (localIp, localPort) with a
// wildcard remote.
func (t *Table) lookup(remoteIP, localIP wire.IPv4Addr, remotePort, localPort uint16) *pcb {
	for i := range t.pcbs {
		p := &t.pcbs[i]
		if p.state == StateFree || p.state == StateListen {
			continue
		}
		if p.localIP == localIP && p.localPort == localPort &&
			p.remoteIP == remoteIP && p.remotePort == remotePort {
			return p
		}
	}
	for i := range t.pcbs {
		p := &t.pcbs[i]
		if p.state == StateListen && p.localPort == localPort &&
			(p.localIP == localIP || p.localIP.IsZero()) {
			return p
		}
	}
	return nil
}

func (t *Table) sendResetForUnknown(s *stack.Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, seg inSeg) error {
	if seg.has(wire.FlagACK) {
		return sendRSTTo(s, iface, srcIP, dstIP, seg.dstPort, seg.srcPort, seg.ack, 0, false)
	}
	return sendRSTTo(s, iface, srcIP, dstIP, seg.dstPort, seg.srcPort, 0, seg.seq+seg.segLen(), true)
}

// handleListen implements the "LISTEN, on SYN" deviation: spawn a new PCB
// in SYN_RECEIVED; the listener itself stays in LISTEN.
func (t *Table) handleListen(s *stack.Stack, iface *ifc.Interface, listener *pcb, srcIP, dstIP wire.IPv4Addr, seg inSeg) error {
	if !seg.has(wire.FlagSYN) || seg.has(wire.FlagACK) {
		return nil
	}

	childIdx, err := t.New()
	if err != nil {
		return nil // no PCB slot: drop the SYN (spec.md §4.8.4)
	}
	c := &t.pcbs[childIdx]
	c.localIP = dstIP
	c.localPort = listener.localPort
	c.remoteIP = srcIP
	c.remotePort = seg.srcPort
	c.rcvNXT = seg.seq + 1
	c.irs = seg.seq
	c.iss = uint32(s.Clock.NowMillis())
	c.sndUNA = c.iss
	c.sndNXT = c.iss + 1
	c.rcvWND = t.cfg.DefWindow
	c.sndWND = seg.window
	c.sendBuf = newRing(t.cfg.DataBufSize)
	c.recvBuf = newRing(t.cfg.DataBufSize)
	c.listenOwner = listener.id
	c.notify = listener.notify
	c.stats.OpenedAtMs = s.Clock.NowMillis()
	c.lastActive = s.Clock.NowMillis()
	if seg.haveTS {
		c.peerTSVal = seg.tsVal
	}
	c.state = StateSynReceived

	return t.sendSYN(s, iface, c, true)
}

func (t *Table) handleSynSent(s *stack.Stack, iface *ifc.Interface, p *pcb, seg inSeg) error {
	if seg.has(wire.FlagRST) {
		t.notifyAndFree(p, EventRemoteReset)
		return nil
	}
	if !seg.has(wire.FlagSYN) {
		return nil
	}
	if seg.has(wire.FlagACK) && seg.ack != p.sndNXT {
		return nil // unacceptable ACK; silently drop (spec.md §4.8.4/§4.8.7)
	}

	p.sndUNA = seg.ack
	p.rcvNXT = seg.seq + 1
	p.irs = seg.seq
	if seg.haveTS {
		p.peerTSVal = seg.tsVal
	}
	p.sndWND = seg.window
	p.retx = nil
	p.state = StateEstablished

	if p.notify != nil {
		p.notify(p.id, EventConnected)
	}
	return t.sendACK(s, iface, p)
}

// handleSynchronized implements the RFC 793 synchronized-state processing
// (spec.md §4.8.4): sequence acceptability, RST, SYN-in-window, ACK, text,
// and FIN, in that canonical order.
func (t *Table) handleSynchronized(s *stack.Stack, iface *ifc.Interface, p *pcb, seg inSeg) error {
	if !acceptable(p, seg) {
		if !seg.has(wire.FlagRST) {
			t.sendACK(s, iface, p)
		}
		return nil
	}

	if seg.has(wire.FlagRST) {
		t.notifyAndFree(p, EventRemoteReset)
		return nil
	}

	if seg.has(wire.FlagSYN) {
		sendRSTTo(s, iface, p.localIP, p.remoteIP, p.localPort, p.remotePort, p.sndNXT, 0, false)
		t.notifyAndFree(p, EventRemoteReset)
		return nil
	}

	if seg.has(wire.FlagACK) {
		t.processACK(p, seg)
	}

	if len(seg.data) > 0 && (p.state == StateEstablished || p.state == StateFinWait1 || p.state == StateFinWait2) {
		if seg.seq == p.rcvNXT {
			n := p.recvBuf.write(seg.data)
			p.rcvNXT += uint32(n)
			p.stats.RecvBytes += uint64(n)
			t.sendACK(s, iface, p)
			if p.notify != nil {
				p.notify(p.id, EventDataArrived)
			}
		}
	}

	if seg.has(wire.FlagFIN) {
		t.handleFIN(s, iface, p, seg)
	}

	if iface2, err := t.resolveIface(s, p.remoteIP); err == nil {
		t.trySend(s, iface2, p)
	}
	return nil
}

// acceptable implements the RFC 793 §3.3 segment acceptability test using
// serial-number arithmetic to handle sequence wraparound.
func acceptable(p *pcb, seg inSeg) bool {
	segLen := seg.segLen() - boolToUint32(seg.has(wire.FlagSYN)) - boolToUint32(seg.has(wire.FlagFIN))
	if segLen == 0 {
		if p.rcvWND == 0 {
			return seg.seq == p.rcvNXT
		}
		return wire.SeqInWindow(seg.seq, p.rcvNXT, uint32(p.rcvWND))
	}
	if p.rcvWND == 0 {
		return false
	}
	if wire.SeqInWindow(seg.seq, p.rcvNXT, uint32(p.rcvWND)) {
		return true
	}
	return wire.SeqInWindow(seg.seq+segLen-1, p.rcvNXT, uint32(p.rcvWND))
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (t *Table) processACK(p *pcb, seg inSeg) {
	if wire.SeqLess(p.sndUNA, seg.ack) && wire.SeqLessEqual(seg.ack, p.sndNXT) {
		acked := seg.ack - p.sndUNA
		p.sndUNA = seg.ack
		if p.sendBuf != nil {
			n := int(acked)
			if n > p.sendBuf.used() {
				n = p.sendBuf.used()
			}
			p.sendBuf.discard(n)
		}
		p.ackAdvanced()
	}
	if wire.SeqLess(p.sndWL1, seg.seq) || (seg.seq == p.sndWL1 && wire.SeqLessEqual(p.sndWL2, seg.ack)) {
		p.sndWND = seg.window
		p.sndWL1 = seg.seq
		p.sndWL2 = seg.ack
	}
	if seg.haveTS {
		p.peerTSVal = seg.tsVal
	}

	switch p.state {
	case StateSynReceived:
		if seg.ack == p.sndNXT {
			p.state = StateEstablished
			if listener := t.byID(p.listenOwner); listener != nil && listener.state == StateListen && listener.accept != nil {
				listener.accept(p.id)
			}
		}
	case StateFinWait1:
		if seg.ack == p.sndNXT {
			p.state = StateFinWait2
		}
	case StateClosing:
		if seg.ack == p.sndNXT {
			p.state = StateTimeWait
		}
	case StateLastAck:
		if seg.ack == p.sndNXT {
			t.notifyAndFree(p, EventClose)
		}
	}
}

func (t *Table) handleFIN(s *stack.Stack, iface *ifc.Interface, p *pcb, seg inSeg) {
	switch p.state {
	case StateEstablished, StateSynReceived:
		p.gotFIN = true
		p.rcvNXT = seg.seq + seg.segLen()
		if p.notify != nil {
			p.notify(p.id, EventClose)
		}
		t.sendACK(s, iface, p)
		p.state = StateCloseWait
	case StateFinWait1:
		p.gotFIN = true
		p.rcvNXT = seg.seq + seg.segLen()
		t.sendACK(s, iface, p)
		if seg.has(wire.FlagACK) && seg.ack == p.sndNXT {
			p.state = StateTimeWait
			p.lastActive = s.Clock.NowMillis()
		} else {
			p.state = StateClosing
		}
	case StateFinWait2:
		p.gotFIN = true
		p.rcvNXT = seg.seq + seg.segLen()
		t.sendACK(s, iface, p)
		p.state = StateTimeWait
		p.lastActive = s.Clock.NowMillis()
	case StateTimeWait:
		// Duplicate FIN: re-ACK, restart the 2*MSL clock.
		t.sendACK(s, iface, p)
		p.lastActive = s.Clock.NowMillis()
	}
}
