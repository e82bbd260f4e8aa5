package arp

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sbcnet/coreip/pkg/wire"
)

// errShortFrame is returned (and logged, never panicked on) when a frame
// claiming to be ARP is too short to hold a full packet.
var errShortFrame = errors.New("arp: frame shorter than ARP packet")

// HandleFrame processes one inbound Ethernet frame whose ethertype is ARP
// (spec.md §4.3). raw still carries its Ethernet header; htype/ptype/hlen/
// plen mismatches are dropped silently, matching the no-asserts error
// policy (spec.md §9).
func HandleFrame(port Port, raw []byte, log *logrus.Logger) error {
	if len(raw) < wire.EthernetHeaderLen+wire.ARPPacketLen {
		if log != nil {
			log.WithField("len", len(raw)).Debug("arp: short frame dropped")
		}
		return errShortFrame
	}
	pkt := wire.ARPPacket(raw[wire.EthernetHeaderLen:])
	if !pkt.IsValid() {
		return nil
	}

	switch pkt.Op() {
	case wire.ARPRequest:
		if pkt.TPA() != port.IPAddr() {
			return nil
		}
		if err := port.Table().Add(pkt.SPA(), pkt.SHA(), Dynamic); err != nil {
			if log != nil {
				log.WithError(err).Debug("arp: learn on request failed")
			}
		}
		return sendReply(port, pkt.SHA(), pkt.SPA())

	case wire.ARPReply:
		if err := port.Table().Add(pkt.SPA(), pkt.SHA(), Dynamic); err != nil {
			if log != nil {
				log.WithError(err).Debug("arp: learn on reply failed")
			}
		}
		return nil

	default:
		return nil
	}
}

func sendReply(port Port, toMAC wire.MACAddr, toIP wire.IPv4Addr) error {
	buf, err := port.BufPool().Allocate()
	if err != nil {
		return err
	}
	defer port.BufPool().Free(buf)

	n := wire.EthernetHeaderLen + wire.ARPPacketLen
	buf.Len = n
	raw := buf.Data[:n]

	eth := wire.Ethernet(raw)
	eth.SetDest(toMAC)
	eth.SetSrc(port.MAC())
	eth.SetType(wire.EthertypeARP)

	wire.BuildARP(wire.ARPPacket(raw[wire.EthernetHeaderLen:]), wire.ARPReply,
		port.MAC(), port.IPAddr(), toMAC, toIP)

	_, err = port.Output(buf)
	return err
}

// Gratuitous broadcasts an unsolicited ARP request announcing port's own
// (IP, MAC) binding, used on interface bring-up (spec.md §4.3 notes this as
// the typical use of a request whose target IP equals the sender's own).
func Gratuitous(port Port) error {
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
		port.MAC(), port.IPAddr(), wire.MACAddr{}, port.IPAddr())

	_, err = port.Output(buf)
	return err
}
