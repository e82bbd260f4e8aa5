package wire

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// TestEthernetARPInterop builds an ARP request with this package's typed
// header views and checks it against gopacket's independent decoder, so
// the hand-written wire encoding (spec.md §9's "typed getter/setter"
// redesign note) is validated against a second implementation rather than
// only against itself.
func TestEthernetARPInterop(t *testing.T) {
	raw := make([]byte, EthernetHeaderLen+ARPPacketLen)
	eth := Ethernet(raw)
	src := MACAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x01}
	eth.SetDest(BroadcastMAC)
	eth.SetSrc(src)
	eth.SetType(EthertypeARP)

	spa := IPv4Addr{192, 168, 1, 10}
	tpa := IPv4Addr{192, 168, 1, 19}
	BuildARP(ARPPacket(raw[EthernetHeaderLen:]), ARPRequest, src, spa, MACAddr{}, tpa)

	pkt := gopacket.NewPacket(raw, layers.LinkTypeEthernet, gopacket.Default)

	ethLayer, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		t.Fatalf("gopacket did not decode an Ethernet layer")
	}
	if ethLayer.SrcMAC.String() != src.String() {
		t.Errorf("src MAC = %s, want %s", ethLayer.SrcMAC, src)
	}
	if ethLayer.EthernetType != layers.EthernetTypeARP {
		t.Errorf("ethertype = %v, want ARP", ethLayer.EthernetType)
	}

	arpLayer, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	if !ok {
		t.Fatalf("gopacket did not decode an ARP layer")
	}
	if arpLayer.Operation != layers.ARPRequest {
		t.Errorf("arp op = %v, want request", arpLayer.Operation)
	}
	if net4(arpLayer.SourceProtAddress) != spa {
		t.Errorf("spa = %v, want %v", arpLayer.SourceProtAddress, spa)
	}
	if net4(arpLayer.DstProtAddress) != tpa {
		t.Errorf("tpa = %v, want %v", arpLayer.DstProtAddress, tpa)
	}
}

// TestIPv4ICMPInterop builds an IPv4+ICMP echo request and checks it
// against gopacket's decoder and checksum validation.
func TestIPv4ICMPInterop(t *testing.T) {
	payload := []byte("hello")
	total := IPv4HeaderLen + ICMPHeaderLen + len(payload)
	raw := make([]byte, EthernetHeaderLen+total)

	eth := Ethernet(raw)
	eth.SetDest(MACAddr{1, 2, 3, 4, 5, 6})
	eth.SetSrc(MACAddr{6, 5, 4, 3, 2, 1})
	eth.SetType(EthertypeIPv4)

	hdr := IPv4Header(raw[EthernetHeaderLen : EthernetHeaderLen+total])
	hdr.SetVersionIHL(5)
	hdr.SetTotalLen(uint16(total))
	hdr.SetTTL(64)
	hdr.SetProtocol(ProtoICMP)
	hdr.SetSrc(IPv4Addr{192, 168, 1, 10})
	hdr.SetDst(IPv4Addr{192, 168, 1, 19})
	hdr.ComputeChecksum()

	msg := ICMPEcho(raw[EthernetHeaderLen+IPv4HeaderLen:])
	msg.SetType(ICMPEchoRequest)
	msg.SetCode(ICMPCodeZero)
	msg.SetID(1)
	msg.SetSeq(7)
	copy(msg.Payload(), payload)
	msg.ComputeChecksum()

	pkt := gopacket.NewPacket(raw, layers.LinkTypeEthernet, gopacket.Default)
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		t.Fatalf("gopacket did not decode an IPv4 layer")
	}
	if ipLayer.Protocol != layers.IPProtocolICMPv4 {
		t.Errorf("protocol = %v, want ICMPv4", ipLayer.Protocol)
	}

	icmpLayer, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	if !ok {
		t.Fatalf("gopacket did not decode an ICMPv4 layer")
	}
	if icmpLayer.TypeCode.Type() != ICMPEchoRequest {
		t.Errorf("icmp type = %d, want %d", icmpLayer.TypeCode.Type(), ICMPEchoRequest)
	}
	if icmpLayer.Id != 1 || icmpLayer.Seq != 7 {
		t.Errorf("id/seq = %d/%d, want 1/7", icmpLayer.Id, icmpLayer.Seq)
	}
	if string(icmpLayer.Payload) != "hello" {
		t.Errorf("payload = %q, want %q", icmpLayer.Payload, "hello")
	}
}

func net4(ip []byte) IPv4Addr {
	var a IPv4Addr
	copy(a[:], ip)
	return a
}
