package wire

import "encoding/binary"

// TCP control flags (§6, RFC 793 §3.1).
const (
	FlagFIN uint8 = 1 << 0
	FlagSYN uint8 = 1 << 1
	FlagRST uint8 = 1 << 2
	FlagPSH uint8 = 1 << 3
	FlagACK uint8 = 1 << 4
	FlagURG uint8 = 1 << 5
)

// TCP option kinds this core recognizes (§4.8.3 step 4).
const (
	OptKindEnd       uint8 = 0
	OptKindNOP       uint8 = 1
	OptKindMSS       uint8 = 2
	OptKindWinScale  uint8 = 3
	OptKindTimestamp uint8 = 8
)

// TCPHeaderLen is the fixed part of a TCP header before options (§6).
const TCPHeaderLen = 20

// TCPHeader is a typed view over a TCP segment's fixed header; options and
// data follow at DataOffset()*4.
type TCPHeader []byte

func (h TCPHeader) SrcPort() uint16 { return binary.BigEndian.Uint16(h[0:2]) }
func (h TCPHeader) DstPort() uint16 { return binary.BigEndian.Uint16(h[2:4]) }
func (h TCPHeader) Seq() uint32     { return binary.BigEndian.Uint32(h[4:8]) }
func (h TCPHeader) Ack() uint32     { return binary.BigEndian.Uint32(h[8:12]) }
func (h TCPHeader) DataOffset() uint8 { return h[12] >> 4 }
func (h TCPHeader) Flags() uint8      { return h[13] }
func (h TCPHeader) Window() uint16    { return binary.BigEndian.Uint16(h[14:16]) }
func (h TCPHeader) Checksum() uint16  { return binary.BigEndian.Uint16(h[16:18]) }
func (h TCPHeader) Urgent() uint16    { return binary.BigEndian.Uint16(h[18:20]) }

func (h TCPHeader) SetSrcPort(v uint16) { binary.BigEndian.PutUint16(h[0:2], v) }
func (h TCPHeader) SetDstPort(v uint16) { binary.BigEndian.PutUint16(h[2:4], v) }
func (h TCPHeader) SetSeq(v uint32)     { binary.BigEndian.PutUint32(h[4:8], v) }
func (h TCPHeader) SetAck(v uint32)     { binary.BigEndian.PutUint32(h[8:12], v) }
func (h TCPHeader) SetDataOffset(words uint8) {
	h[12] = (words << 4)
}
func (h TCPHeader) SetFlags(v uint8)      { h[13] = v }
func (h TCPHeader) SetWindow(v uint16)    { binary.BigEndian.PutUint16(h[14:16], v) }
func (h TCPHeader) SetChecksum(v uint16)  { binary.BigEndian.PutUint16(h[16:18], v) }
func (h TCPHeader) SetUrgent(v uint16)    { binary.BigEndian.PutUint16(h[18:20], v) }

func (h TCPHeader) HasFlag(f uint8) bool { return h.Flags()&f != 0 }

// Options returns the option bytes between the fixed header and the data.
func (h TCPHeader) Options() []byte {
	return h[TCPHeaderLen : h.DataOffset()*4]
}

// Data returns the segment payload past options, given the total segment
// length (IP total length minus IP header length).
func (h TCPHeader) Data(segLen int) []byte {
	return h[h.DataOffset()*4 : segLen]
}

// ComputeChecksum computes and stores the TCP checksum over the IPv4
// pseudo-header concatenated with the TCP header, options, and data
// (§4.8.3 step 1), given the total segment length in bytes.
func (h TCPHeader) ComputeChecksum(src, dst IPv4Addr, segLen int) {
	h.SetChecksum(0)
	sum := PseudoHeaderSum(src, dst, ProtoTCP, uint16(segLen))
	sum = sum.Add(h[:segLen])
	h.SetChecksum(sum.Fold())
}

// VerifyChecksum validates the TCP checksum over segLen bytes.
func (h TCPHeader) VerifyChecksum(src, dst IPv4Addr, segLen int) bool {
	sum := PseudoHeaderSum(src, dst, ProtoTCP, uint16(segLen))
	sum = sum.Add(h[:segLen])
	return sum.Fold() == 0
}

// TCPOption is one parsed option from the options area (§4.8.3 step 4).
type TCPOption struct {
	Kind uint8
	// Value holds the option's value bytes, excluding kind and length.
	// Empty for End and NOP.
	Value []byte
}

// ParseTCPOptions walks the option bytes, recognizing kinds 0 (end), 1
// (nop), 2 (MSS, 4 bytes total), 3 (window scale, 3 bytes total), and 8
// (timestamp, 10 bytes total). Unrecognized kinds are skipped by their
// length byte. A malformed options area (truncated length, or a length
// that would run past the end of the buffer) is reported via ok=false so
// the caller can drop the segment per §4.8.3 step 4.
func ParseTCPOptions(opts []byte) (result []TCPOption, ok bool) {
	i := 0
	for i < len(opts) {
		kind := opts[i]
		switch kind {
		case OptKindEnd:
			return result, true
		case OptKindNOP:
			result = append(result, TCPOption{Kind: kind})
			i++
			continue
		}
		if i+1 >= len(opts) {
			return nil, false
		}
		length := int(opts[i+1])
		if length < 2 || i+length > len(opts) {
			return nil, false
		}
		result = append(result, TCPOption{Kind: kind, Value: opts[i+2 : i+length]})
		i += length
	}
	return result, true
}

// BuildMSSOption appends a 4-byte MSS option to dst.
func BuildMSSOption(dst []byte, mss uint16) []byte {
	var buf [4]byte
	buf[0] = OptKindMSS
	buf[1] = 4
	binary.BigEndian.PutUint16(buf[2:4], mss)
	return append(dst, buf[:]...)
}

// BuildWindowScaleOption appends a 3-byte window scale option to dst.
func BuildWindowScaleOption(dst []byte, shift uint8) []byte {
	return append(dst, OptKindWinScale, 3, shift)
}

// BuildTimestampOption appends a 10-byte timestamp option to dst.
func BuildTimestampOption(dst []byte, tsVal, tsEcr uint32) []byte {
	var buf [10]byte
	buf[0] = OptKindTimestamp
	buf[1] = 10
	binary.BigEndian.PutUint32(buf[2:6], tsVal)
	binary.BigEndian.PutUint32(buf[6:10], tsEcr)
	return append(dst, buf[:]...)
}

// PadOptions pads dst with END (kind 0) bytes up to a 4-byte boundary.
func PadOptions(dst []byte) []byte {
	for len(dst)%4 != 0 {
		dst = append(dst, OptKindEnd)
	}
	return dst
}

// SeqLess reports whether a precedes b, using serial number arithmetic
// (RFC 793 §3.3) so that 32-bit sequence number wraparound is handled
// correctly.
func SeqLess(a, b uint32) bool {
	return int32(a-b) < 0
}

// SeqLessEqual reports whether a precedes or equals b in serial order.
func SeqLessEqual(a, b uint32) bool {
	return a == b || SeqLess(a, b)
}

// SeqInWindow reports whether seq falls within [start, start+size) in
// serial-number order, used for the SYN/segment-acceptability tests in
// §4.8.4.
func SeqInWindow(seq, start uint32, size uint32) bool {
	return SeqLessEqual(start, seq) && SeqLess(seq, start+size)
}
