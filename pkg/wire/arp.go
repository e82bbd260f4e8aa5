package wire

import "encoding/binary"

// ARP opcodes (§6).
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

// ARPHType/PType are the only values this stack recognizes (§4.3: "drop if
// htype != 1 or ptype != IPv4").
const (
	ARPHTypeEthernet uint16 = 1
	ARPPTypeIPv4     uint16 = 0x0800
)

// ARPPacketLen is the fixed size of an Ethernet/IPv4 ARP packet: htype(2)
// ptype(2) hlen(1) plen(1) op(2) sha(6) spa(4) tha(6) tpa(4) (§6).
const ARPPacketLen = 28

// ARPPacket is a typed view over an ARP packet, following the same
// fixed-offset-getter/setter discipline as Ethernet and the teacher's
// RawTCPInfo.
type ARPPacket []byte

func (p ARPPacket) HType() uint16 { return binary.BigEndian.Uint16(p[0:2]) }
func (p ARPPacket) SetHType(v uint16) {
	binary.BigEndian.PutUint16(p[0:2], v)
}

func (p ARPPacket) PType() uint16 { return binary.BigEndian.Uint16(p[2:4]) }
func (p ARPPacket) SetPType(v uint16) {
	binary.BigEndian.PutUint16(p[2:4], v)
}

func (p ARPPacket) HLen() uint8 { return p[4] }
func (p ARPPacket) SetHLen(v uint8) {
	p[4] = v
}

func (p ARPPacket) PLen() uint8 { return p[5] }
func (p ARPPacket) SetPLen(v uint8) {
	p[5] = v
}

func (p ARPPacket) Op() uint16 { return binary.BigEndian.Uint16(p[6:8]) }
func (p ARPPacket) SetOp(v uint16) {
	binary.BigEndian.PutUint16(p[6:8], v)
}

func (p ARPPacket) SHA() MACAddr {
	var m MACAddr
	copy(m[:], p[8:14])
	return m
}
func (p ARPPacket) SetSHA(m MACAddr) { copy(p[8:14], m[:]) }

func (p ARPPacket) SPA() IPv4Addr {
	var a IPv4Addr
	copy(a[:], p[14:18])
	return a
}
func (p ARPPacket) SetSPA(a IPv4Addr) { copy(p[14:18], a[:]) }

func (p ARPPacket) THA() MACAddr {
	var m MACAddr
	copy(m[:], p[18:24])
	return m
}
func (p ARPPacket) SetTHA(m MACAddr) { copy(p[18:24], m[:]) }

func (p ARPPacket) TPA() IPv4Addr {
	var a IPv4Addr
	copy(a[:], p[24:28])
	return a
}
func (p ARPPacket) SetTPA(a IPv4Addr) { copy(p[24:28], a[:]) }

// IsValid checks the fixed htype/ptype/hlen/plen fields this stack accepts.
func (p ARPPacket) IsValid() bool {
	if len(p) < ARPPacketLen {
		return false
	}
	return p.HType() == ARPHTypeEthernet && p.PType() == ARPPTypeIPv4 &&
		p.HLen() == 6 && p.PLen() == 4
}

// BuildARP fills an ARPPacket fully, for both requests and replies.
func BuildARP(p ARPPacket, op uint16, sha MACAddr, spa IPv4Addr, tha MACAddr, tpa IPv4Addr) {
	p.SetHType(ARPHTypeEthernet)
	p.SetPType(ARPPTypeIPv4)
	p.SetHLen(6)
	p.SetPLen(4)
	p.SetOp(op)
	p.SetSHA(sha)
	p.SetSPA(spa)
	p.SetTHA(tha)
	p.SetTPA(tpa)
}
