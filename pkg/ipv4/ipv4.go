// Package ipv4 implements IPv4 input validation/demux and output/routing
// (spec.md §4.4, §4.5).
package ipv4

import (
	"errors"

	"github.com/sbcnet/coreip/pkg/arp"
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/stack"
	"github.com/sbcnet/coreip/pkg/wire"
)

// DefaultTTL is the outbound TTL (spec.md §4.5, §6).
const DefaultTTL = 64

var ErrNoRoute = errors.New("ipv4: no route to destination")

// Input validates and demuxes one inbound IPv4 packet (spec.md §4.4). raw
// is the full Ethernet frame; the IPv4 header starts at wire.EthernetHeaderLen.
// It is the EthertypeHandler registered for wire.EthertypeIPv4.
func Input(s *stack.Stack, iface *ifc.Interface, raw []byte) error {
	if len(raw) < wire.EthernetHeaderLen+wire.IPv4HeaderLen {
		iface.DropInput()
		return nil
	}
	hdr := wire.IPv4Header(raw[wire.EthernetHeaderLen:])

	if int(hdr.IHL())*4 < wire.IPv4HeaderLen || wire.EthernetHeaderLen+int(hdr.IHL())*4 > len(raw) {
		iface.DropInput()
		return nil
	}
	if !hdr.VerifyChecksum() {
		iface.DropInput()
		return nil
	}
	if hdr.Version() != 4 {
		iface.DropInput()
		return nil
	}

	dst := hdr.Dst()
	if dst != iface.IPAddr() && dst != iface.IPAddr().Broadcast(iface.Netmask()) && !isLimitedBroadcast(dst) {
		iface.DropInput()
		return nil
	}

	if hdr.MF() || hdr.FragOffset() != 0 {
		iface.DropInput()
		return nil
	}

	fn, ok := s.ProtocolHandler(hdr.Protocol())
	if !ok {
		iface.DropInput()
		return nil
	}

	ihl := int(hdr.IHL()) * 4
	total := int(hdr.TotalLen())
	if wire.EthernetHeaderLen+total > len(raw) || total < ihl {
		iface.DropInput()
		return nil
	}
	payload := raw[wire.EthernetHeaderLen+ihl : wire.EthernetHeaderLen+total]

	return fn(s, iface, hdr.Src(), hdr.Dst(), payload)
}

func isLimitedBroadcast(ip wire.IPv4Addr) bool {
	return ip == wire.IPv4Addr{255, 255, 255, 255}
}

// Output builds an IPv4 header around an already-placed payload, routes
// it, and hands it to the ARP output gate (spec.md §4.5).
//
// pkt must already hold a zeroed EthernetHeaderLen-byte link header
// followed by wire.IPv4HeaderLen bytes of header room and the protocol
// payload; Output fills the IPv4 header in place. id is the value written
// to the identification field, normally taken from iface.NextID().
//
// An unresolved next hop is not reported to the caller: arp.Output drops
// pkt and sends an ARP request, and Output returns nil, the same result
// as a packet that was handed to the driver.
func Output(s *stack.Stack, iface *ifc.Interface, pkt *pbuf.Pbuf, destIP wire.IPv4Addr, protocol uint8, payloadLen int, id uint16) error {
	route, err := s.RouteLookup(destIP)
	if err != nil {
		s.Pool.Free(pkt)
		return ErrNoRoute
	}

	total := wire.IPv4HeaderLen + payloadLen
	hdr := wire.IPv4Header(pkt.Data[wire.EthernetHeaderLen : wire.EthernetHeaderLen+total])
	hdr.SetVersionIHL(5)
	hdr.SetDSCP(0)
	hdr.SetTotalLen(uint16(total))
	hdr.SetID(id)
	hdr.SetFlagsFragOffset(true, false, 0)
	hdr.SetTTL(DefaultTTL)
	hdr.SetProtocol(protocol)
	hdr.SetSrc(iface.IPAddr())
	hdr.SetDst(destIP)
	hdr.ComputeChecksum()

	nextHop := destIP
	if !onLink(iface, destIP) {
		nextHop = route.Gateway
	}

	_, err = arp.Output(iface, pkt, nextHop)
	return err
}

func onLink(iface *ifc.Interface, destIP wire.IPv4Addr) bool {
	return destIP.Mask(iface.Netmask()) == iface.IPAddr().Mask(iface.Netmask())
}
