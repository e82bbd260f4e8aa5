package wire

import "encoding/binary"

// IPv4 protocol numbers used by the demux (§4.4.3).
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// IPv4HeaderLen is the fixed 20-byte header this core emits and expects
// (no options, §4.5.2: "IHL=5").
const IPv4HeaderLen = 20

const (
	ipv4FlagDF uint16 = 0x4000
	ipv4FlagMF uint16 = 0x2000
)

// IPv4Header is a typed view over a 20-byte IPv4 header (§6).
type IPv4Header []byte

func (h IPv4Header) Version() uint8   { return h[0] >> 4 }
func (h IPv4Header) IHL() uint8       { return h[0] & 0x0f }
func (h IPv4Header) DSCP() uint8      { return h[1] }
func (h IPv4Header) TotalLen() uint16 { return binary.BigEndian.Uint16(h[2:4]) }
func (h IPv4Header) ID() uint16       { return binary.BigEndian.Uint16(h[4:6]) }

func (h IPv4Header) flagsAndFragOff() uint16 { return binary.BigEndian.Uint16(h[6:8]) }
func (h IPv4Header) DF() bool                { return h.flagsAndFragOff()&ipv4FlagDF != 0 }
func (h IPv4Header) MF() bool                { return h.flagsAndFragOff()&ipv4FlagMF != 0 }
func (h IPv4Header) FragOffset() uint16      { return h.flagsAndFragOff() & 0x1fff }

func (h IPv4Header) TTL() uint8        { return h[8] }
func (h IPv4Header) Protocol() uint8   { return h[9] }
func (h IPv4Header) Checksum() uint16  { return binary.BigEndian.Uint16(h[10:12]) }
func (h IPv4Header) Src() IPv4Addr     { var a IPv4Addr; copy(a[:], h[12:16]); return a }
func (h IPv4Header) Dst() IPv4Addr     { var a IPv4Addr; copy(a[:], h[16:20]); return a }

func (h IPv4Header) SetVersionIHL(ihlWords uint8) { h[0] = (4 << 4) | (ihlWords & 0x0f) }
func (h IPv4Header) SetDSCP(v uint8)              { h[1] = v }
func (h IPv4Header) SetTotalLen(v uint16)         { binary.BigEndian.PutUint16(h[2:4], v) }
func (h IPv4Header) SetID(v uint16)               { binary.BigEndian.PutUint16(h[4:6], v) }

func (h IPv4Header) SetFlagsFragOffset(df, mf bool, fragOffset uint16) {
	var v uint16
	if df {
		v |= ipv4FlagDF
	}
	if mf {
		v |= ipv4FlagMF
	}
	v |= fragOffset & 0x1fff
	binary.BigEndian.PutUint16(h[6:8], v)
}

func (h IPv4Header) SetTTL(v uint8)       { h[8] = v }
func (h IPv4Header) SetProtocol(v uint8)  { h[9] = v }
func (h IPv4Header) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h[10:12], v) }
func (h IPv4Header) SetSrc(a IPv4Addr)    { copy(h[12:16], a[:]) }
func (h IPv4Header) SetDst(a IPv4Addr)    { copy(h[16:20], a[:]) }

// ComputeChecksum recomputes and stores the header checksum, zeroing the
// field first so the sum is well-defined (§4.5.2).
func (h IPv4Header) ComputeChecksum() {
	h.SetChecksum(0)
	h.SetChecksum(HeaderChecksum(h[:h.IHL()*4]))
}

// VerifyChecksum validates the header per §4.4.1: the one's-complement sum
// over ihl*4 bytes must fold to zero.
func (h IPv4Header) VerifyChecksum() bool {
	ihl := int(h.IHL()) * 4
	if ihl < IPv4HeaderLen || ihl > len(h) {
		return false
	}
	return VerifyChecksum(h[:ihl])
}

// Payload returns the view past the (fixed-length, no-options) header.
func (h IPv4Header) Payload() []byte {
	return h[IPv4HeaderLen:h.TotalLen()]
}
