package arp

import (
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

// Status is the outcome of Output (spec.md §4.3).
type Status int

const (
	// StatusSent means the frame was addressed and handed to the driver.
	StatusSent Status = iota
	// StatusPending means the destination was unresolved: the original
	// packet was dropped and an ARP request was sent (spec.md §4.3,
	// "drop-on-miss": no output queue is kept).
	StatusPending
)

// Output resolves nextHop to a MAC address and either sends ipPkt
// immediately or drops it and issues an ARP request (spec.md §4.3). ipPkt
// must already hold a zeroed 14-byte link-layer header followed by a fully
// formed IP packet; Output always frees ipPkt before returning.
func Output(port Port, ipPkt *pbuf.Pbuf, nextHop wire.IPv4Addr) (Status, error) {
	mac, ok := port.Table().Query(nextHop)
	if !ok {
		port.BufPool().Free(ipPkt)
		return StatusPending, sendRequest(port, nextHop)
	}

	raw := ipPkt.Bytes()
	eth := wire.Ethernet(raw)
	eth.SetDest(mac)
	eth.SetSrc(port.MAC())
	eth.SetType(wire.EthertypeIPv4)

	res, err := port.Output(ipPkt)
	port.BufPool().Free(ipPkt)
	if err != nil {
		return StatusSent, err
	}
	_ = res // Queued and OK are both a successful handoff at this layer
	return StatusSent, nil
}

func sendRequest(port Port, target wire.IPv4Addr) error {
	buf, err := port.BufPool().Allocate()
	if err != nil {
		return err
	}
	defer port.BufPool().Free(buf)

	n := wire.EthernetHeaderLen + wire.ARPPacketLen
	buf.Len = n
	raw := buf.Data[:n]

	eth := wire.Ethernet(raw)
	eth.SetDest(wire.BroadcastMAC)
	eth.SetSrc(port.MAC())
	eth.SetType(wire.EthertypeARP)

	wire.BuildARP(wire.ARPPacket(raw[wire.EthernetHeaderLen:]), wire.ARPRequest,
		port.MAC(), port.IPAddr(), wire.MACAddr{}, target)

	res, err := port.Output(buf)
	_ = res
	return err
}
