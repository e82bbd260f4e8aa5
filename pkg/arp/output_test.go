package arp

import (
	"testing"

	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

func newIPPbuf(port *fakePort, payload string) *pbuf.Pbuf {
	buf, err := port.pool.Allocate()
	if err != nil {
		panic(err)
	}
	n := wire.EthernetHeaderLen + len(payload)
	buf.Len = n
	copy(buf.Data[wire.EthernetHeaderLen:n], payload)
	return buf
}

func TestOutputHitSendsAddressedFrame(t *testing.T) {
	port := newFakePort()
	nextHop := ip(5)
	nextHopMAC := mac(5)
	if err := port.tbl.Add(nextHop, nextHopMAC, Dynamic); err != nil {
		t.Fatalf("Add: %v", err)
	}

	before := port.pool.InUse()
	buf := newIPPbuf(port, "payload")
	status, err := Output(port, buf, nextHop)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if status != StatusSent {
		t.Fatalf("status = %v, want StatusSent", status)
	}
	if len(port.sent) != 1 {
		t.Fatalf("expected one frame sent, got %d", len(port.sent))
	}
	eth := wire.Ethernet(port.sent[0])
	if eth.Dest() != nextHopMAC {
		t.Errorf("dest MAC = %v, want %v", eth.Dest(), nextHopMAC)
	}
	if eth.Src() != port.mac {
		t.Errorf("src MAC = %v, want %v", eth.Src(), port.mac)
	}
	if eth.Type() != wire.EthertypeIPv4 {
		t.Errorf("ethertype = %v, want IPv4", eth.Type())
	}
	// Output always frees the buffer handed to it, hit or miss.
	if port.pool.InUse() != before {
		t.Errorf("InUse after Output = %d, want %d (ipPkt must be freed)", port.pool.InUse(), before)
	}
}

func TestOutputMissDropsAndSendsRequest(t *testing.T) {
	port := newFakePort()
	nextHop := ip(7)

	before := port.pool.InUse()
	buf := newIPPbuf(port, "payload")
	status, err := Output(port, buf, nextHop)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if status != StatusPending {
		t.Fatalf("status = %v, want StatusPending", status)
	}
	// The original IP packet was dropped, not queued: the only frame on
	// the wire is the ARP request, not the payload (spec.md §4.3).
	if len(port.sent) != 1 {
		t.Fatalf("expected exactly one frame (the ARP request), got %d", len(port.sent))
	}
	req := wire.ARPPacket(port.sent[0][wire.EthernetHeaderLen:])
	if req.Op() != wire.ARPRequest {
		t.Errorf("sent frame op = %d, want ARPRequest", req.Op())
	}
	if req.TPA() != nextHop {
		t.Errorf("request TPA = %v, want %v", req.TPA(), nextHop)
	}
	if port.pool.InUse() != before {
		t.Errorf("InUse after Output miss = %d, want %d (both buffers must be freed)", port.pool.InUse(), before)
	}
}
