// Package icmp implements the ECHO REQUEST responder and ECHO REPLY
// delivery path spec.md §4.6 describes.
package icmp

import (
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/ipv4"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

// EchoReplyFunc receives an inbound ECHO REPLY addressed to this host. It
// is never called if no callback is registered; the reply is silently
// dropped in that case (spec.md §4.6).
type EchoReplyFunc func(from wire.IPv4Addr, id, seq uint16, payload []byte)

// Handler holds the one piece of instance state ICMP needs: the
// application's echo-reply callback.
type Handler struct {
	OnEchoReply EchoReplyFunc
}

// Input is registered as the stack's ProtocolHandler for wire.ProtoICMP.
func (h *Handler) Input(s *stack.Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, payload []byte) error {
	if len(payload) < wire.ICMPHeaderLen {
		iface.DropInput()
		return nil
	}
	msg := wire.ICMPEcho(payload)
	if !msg.VerifyChecksum() {
		iface.DropInput()
		return nil
	}

	switch msg.Type() {
	case wire.ICMPEchoRequest:
		return reply(s, iface, srcIP, msg)
	case wire.ICMPEchoReply:
		if h.OnEchoReply != nil {
			h.OnEchoReply(srcIP, msg.ID(), msg.Seq(), msg.Payload())
		}
		return nil
	default:
		return nil
	}
}

func reply(s *stack.Stack, iface *ifc.Interface, destIP wire.IPv4Addr, req wire.ICMPEcho) error {
	buf, err := iface.BufPool().Allocate()
	if err != nil {
		return err
	}

	total := wire.IPv4HeaderLen + len(req)
	n := wire.EthernetHeaderLen + total
	buf.Len = n

	msg := wire.ICMPEcho(buf.Data[wire.EthernetHeaderLen+wire.IPv4HeaderLen : n])
	copy(msg, req)
	msg.SetType(wire.ICMPEchoReply)
	msg.SetCode(wire.ICMPCodeZero)
	msg.ComputeChecksum()

	return ipv4.Output(s, iface, buf, destIP, wire.ProtoICMP, len(req), iface.NextID())
}

// SendEchoRequest builds and transmits an ECHO REQUEST toward destIP, for
// use by an application acting as a ping client.
func SendEchoRequest(s *stack.Stack, iface *ifc.Interface, destIP wire.IPv4Addr, id, seq uint16, payload []byte) error {
	buf, err := iface.BufPool().Allocate()
	if err != nil {
		return err
	}

	total := wire.IPv4HeaderLen + wire.ICMPHeaderLen + len(payload)
	n := wire.EthernetHeaderLen + total
	buf.Len = n

	msg := wire.ICMPEcho(buf.Data[wire.EthernetHeaderLen+wire.IPv4HeaderLen : n])
	msg.SetType(wire.ICMPEchoRequest)
	msg.SetCode(wire.ICMPCodeZero)
	msg.SetID(id)
	msg.SetSeq(seq)
	copy(msg.Payload(), payload)
	msg.ComputeChecksum()

	return ipv4.Output(s, iface, buf, destIP, wire.ProtoICMP, wire.ICMPHeaderLen+len(payload), iface.NextID())
}
