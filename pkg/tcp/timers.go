package tcp

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

// armRetransmit starts tracking seq as the oldest unacknowledged byte, per
// spec.md §4.8.4's "a single outstanding retransmit timer based on the
// oldest un-ACKed byte" deviation. Acking past seq (see ackAdvanced)
// disarms it.
func (t *Table) armRetransmit(p *pcb, seq uint32, dataLen int, flags uint8) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(t.cfg.InitialRTOMs) * time.Millisecond
	bo.MaxInterval = time.Duration(t.cfg.MaxRTOMs) * time.Millisecond
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	p.retx = &retransmitItem{
		seq:     seq,
		dataLen: dataLen,
		flags:   flags,
		bo:      bo,
	}
}

// Timers is the timeout sweeper spec.md §4.8.6 calls for every 250ms
// tick: TIME_WAIT expiry, half-open-state expiry, and retransmission.
func (t *Table) Timers(s *stack.Stack) {
	now := s.Clock.NowMillis()
	for i := range t.pcbs {
		p := &t.pcbs[i]
		switch p.state {
		case StateTimeWait:
			if now-p.lastActive >= 2*t.cfg.MSLMs {
				t.notifyAndFree(p, EventClose)
			}
		case StateSynSent, StateSynReceived, StateLastAck:
			if now-p.lastActive >= t.cfg.HStateMs {
				t.notifyAndFree(p, EventRemoteReset)
			}
		}
		if p.retx != nil {
			t.sweepRetransmit(s, p, now)
		}
	}
}

func (t *Table) sweepRetransmit(s *stack.Stack, p *pcb, now int64) {
	r := p.retx
	if r.deadline == 0 {
		r.deadline = now + r.bo.NextBackOff().Milliseconds()
		return
	}
	if now < r.deadline {
		return
	}

	r.attempts++
	if r.attempts > t.cfg.MaxRetransmits {
		t.notifyAndFree(p, EventRemoteReset)
		return
	}

	iface, err := t.resolveIface(s, p.remoteIP)
	if err != nil {
		r.deadline = now + r.bo.NextBackOff().Milliseconds()
		return
	}

	data := make([]byte, r.dataLen)
	if r.flags&wire.FlagSYN == 0 && r.dataLen > 0 {
		peekWithOffset(p.sendBuf, 0, data)
	}

	_ = t.send(s, iface, p, outSeg{
		srcPort: p.localPort, dstPort: p.remotePort,
		seq: r.seq, ack: p.rcvNXT, flags: r.flags,
		window: windowFor(p), data: data, mss: t.cfg.MSS,
		withSYNOptions: r.flags&wire.FlagSYN != 0,
	})
	p.stats.Retransmits++
	r.deadline = now + r.bo.NextBackOff().Milliseconds()
}

// ackAdvanced disarms the retransmit timer once SND.UNA passes the
// tracked segment's final sequence number.
func (p *pcb) ackAdvanced() {
	if p.retx == nil {
		return
	}
	end := p.retx.seq + uint32(p.retx.dataLen)
	if p.retx.flags&wire.FlagSYN != 0 || p.retx.flags&wire.FlagFIN != 0 {
		end++
	}
	if wire.SeqLessEqual(end, p.sndUNA) {
		p.retx = nil
	}
}

func (t *Table) notifyAndFree(p *pcb, event NotifyEvent) {
	if p.notify != nil {
		p.notify(p.id, event)
	}
	p.reset()
}
