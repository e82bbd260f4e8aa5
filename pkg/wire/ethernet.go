package wire

import "encoding/binary"

// Ethertype identifies the payload carried by an Ethernet II frame (§6).
type Ethertype uint16

const (
	EthertypeIPv4 Ethertype = 0x0800
	EthertypeARP  Ethertype = 0x0806
)

// EthernetHeaderLen is the fixed size of an Ethernet II header: 6-byte
// dest, 6-byte src, 2-byte type (§6).
const EthernetHeaderLen = 14

// Ethernet is a typed view over the first 14 bytes of a frame held in a
// pbuf. Like RawTCPInfo in the teacher repo, every field is a fixed byte
// offset into the backing region; unlike RawTCPInfo this is read-write and
// converts network byte order at the boundary (§9 redesign note).
type Ethernet []byte

func (e Ethernet) Dest() MACAddr {
	var m MACAddr
	copy(m[:], e[0:6])
	return m
}

func (e Ethernet) SetDest(m MACAddr) {
	copy(e[0:6], m[:])
}

func (e Ethernet) Src() MACAddr {
	var m MACAddr
	copy(m[:], e[6:12])
	return m
}

func (e Ethernet) SetSrc(m MACAddr) {
	copy(e[6:12], m[:])
}

func (e Ethernet) Type() Ethertype {
	return Ethertype(binary.BigEndian.Uint16(e[12:14]))
}

func (e Ethernet) SetType(t Ethertype) {
	binary.BigEndian.PutUint16(e[12:14], uint16(t))
}

// Payload returns the view past the fixed header.
func (e Ethernet) Payload() []byte {
	return e[EthernetHeaderLen:]
}
