package wire

import "encoding/binary"

// UDPHeaderLen is the standard 8-byte UDP header (§6).
const UDPHeaderLen = 8

// UDPHeader is a typed view over a UDP header.
type UDPHeader []byte

func (h UDPHeader) SrcPort() uint16   { return binary.BigEndian.Uint16(h[0:2]) }
func (h UDPHeader) DstPort() uint16   { return binary.BigEndian.Uint16(h[2:4]) }
func (h UDPHeader) Length() uint16    { return binary.BigEndian.Uint16(h[4:6]) }
func (h UDPHeader) Checksum() uint16  { return binary.BigEndian.Uint16(h[6:8]) }
func (h UDPHeader) Payload() []byte   { return h[UDPHeaderLen:h.Length()] }

func (h UDPHeader) SetSrcPort(v uint16)  { binary.BigEndian.PutUint16(h[0:2], v) }
func (h UDPHeader) SetDstPort(v uint16)  { binary.BigEndian.PutUint16(h[2:4], v) }
func (h UDPHeader) SetLength(v uint16)   { binary.BigEndian.PutUint16(h[4:6], v) }
func (h UDPHeader) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h[6:8], v) }

// ComputeChecksum computes and stores the UDP checksum over the IPv4
// pseudo-header concatenated with the UDP header and data (§4.7.2).
func (h UDPHeader) ComputeChecksum(src, dst IPv4Addr) {
	h.SetChecksum(0)
	sum := PseudoHeaderSum(src, dst, ProtoUDP, h.Length())
	sum = sum.Add(h[:h.Length()])
	v := sum.Fold()
	if v == 0 {
		// An all-zero UDP checksum is reserved to mean "no checksum" on the
		// wire; a genuine zero fold is transmitted as all-ones instead.
		v = 0xffff
	}
	h.SetChecksum(v)
}

// VerifyChecksum validates the UDP checksum; a wire value of 0 means the
// sender opted out of checksumming and the segment is accepted unchecked
// (§4.7.3: "validate UDP checksum (if nonzero)").
func (h UDPHeader) VerifyChecksum(src, dst IPv4Addr) bool {
	if h.Checksum() == 0 {
		return true
	}
	sum := PseudoHeaderSum(src, dst, ProtoUDP, h.Length())
	sum = sum.Add(h[:h.Length()])
	return sum.Fold() == 0
}
