package tcp

import "github.com/sbcnet/coreip/pkg/wire"

// inSeg is a parsed inbound segment (spec.md §4.8.3).
type inSeg struct {
	srcPort, dstPort uint16
	seq, ack         uint32
	flags            uint8
	window           uint16
	urgent           uint16
	data             []byte
	mss              uint16
	haveMSS          bool
	tsVal, tsEcr     uint32
	haveTS           bool
}

// parseSegment validates the checksum and decodes a TCP header, its
// options, and its payload (spec.md §4.8.3). ok is false on checksum
// failure or malformed options, both silently-absorbed error kinds
// (spec.md §7).
func parseSegment(src, dst wire.IPv4Addr, raw []byte) (seg inSeg, ok bool) {
	if len(raw) < wire.TCPHeaderLen {
		return inSeg{}, false
	}
	hdr := wire.TCPHeader(raw)
	segLen := len(raw)
	if !hdr.VerifyChecksum(src, dst, segLen) {
		return inSeg{}, false
	}

	dataOff := int(hdr.DataOffset()) * 4
	if dataOff < wire.TCPHeaderLen || dataOff > segLen {
		return inSeg{}, false
	}

	opts, optsOK := wire.ParseTCPOptions(raw[wire.TCPHeaderLen:dataOff])
	if !optsOK {
		return inSeg{}, false
	}

	seg = inSeg{
		srcPort: hdr.SrcPort(),
		dstPort: hdr.DstPort(),
		seq:     hdr.Seq(),
		ack:     hdr.Ack(),
		flags:   hdr.Flags(),
		window:  hdr.Window(),
		urgent:  hdr.Urgent(),
		data:    raw[dataOff:segLen],
	}

	for _, o := range opts {
		switch o.Kind {
		case wire.OptKindMSS:
			if len(o.Value) == 2 {
				seg.mss = uint16(o.Value[0])<<8 | uint16(o.Value[1])
				seg.haveMSS = true
			}
		case wire.OptKindTimestamp:
			if len(o.Value) == 8 {
				seg.tsVal = uint32(o.Value[0])<<24 | uint32(o.Value[1])<<16 | uint32(o.Value[2])<<8 | uint32(o.Value[3])
				seg.tsEcr = uint32(o.Value[4])<<24 | uint32(o.Value[5])<<16 | uint32(o.Value[6])<<8 | uint32(o.Value[7])
				seg.haveTS = true
			}
		}
	}
	return seg, true
}

// segLen returns SEG.LEN: the payload byte count plus one for each of SYN
// and FIN present (RFC 793 §3.3).
func (s inSeg) segLen() uint32 {
	n := uint32(len(s.data))
	if s.flags&wire.FlagSYN != 0 {
		n++
	}
	if s.flags&wire.FlagFIN != 0 {
		n++
	}
	return n
}

func (s inSeg) has(flag uint8) bool { return s.flags&flag != 0 }

// outSeg describes a segment to build and send.
type outSeg struct {
	srcPort, dstPort uint16
	seq, ack         uint32
	flags            uint8
	window           uint16
	data             []byte
	mss              uint16
	withSYNOptions   bool
}

// buildSegment renders an outSeg into buf (which must hold at least
// wire.TCPHeaderLen+24+len(data) bytes) and returns the segment's total
// length, following the two option layouts spec.md §4.8.5 specifies: SYN
// segments carry MSS+Timestamp+padding (16 option bytes, offset 9 words);
// all others carry Timestamp+padding (12 option bytes, offset 8 words).
func buildSegment(buf []byte, src, dst wire.IPv4Addr, s outSeg, tsVal, tsEcr uint32) int {
	var opts []byte
	if s.withSYNOptions {
		opts = wire.BuildMSSOption(opts, s.mss)
		opts = wire.BuildTimestampOption(opts, tsVal, tsEcr)
		opts = wire.PadOptions(opts)
	} else {
		opts = wire.BuildTimestampOption(opts, tsVal, tsEcr)
		opts = wire.PadOptions(opts)
	}

	dataOff := wire.TCPHeaderLen + len(opts)
	total := dataOff + len(s.data)

	hdr := wire.TCPHeader(buf[:total])
	hdr.SetSrcPort(s.srcPort)
	hdr.SetDstPort(s.dstPort)
	hdr.SetSeq(s.seq)
	hdr.SetAck(s.ack)
	hdr.SetDataOffset(uint8(dataOff / 4))
	hdr.SetFlags(s.flags)
	hdr.SetWindow(s.window)
	hdr.SetUrgent(0)
	copy(buf[wire.TCPHeaderLen:dataOff], opts)
	copy(buf[dataOff:total], s.data)
	hdr.ComputeChecksum(src, dst, total)
	return total
}

// buildRST renders the RST-only path: <SEQ=SEG.ACK><ACK=0><CTL=RST>, no
// options (spec.md §4.8.5 path 1).
func buildRST(buf []byte, src, dst wire.IPv4Addr, srcPort, dstPort uint16, seq uint32) int {
	hdr := wire.TCPHeader(buf[:wire.TCPHeaderLen])
	hdr.SetSrcPort(srcPort)
	hdr.SetDstPort(dstPort)
	hdr.SetSeq(seq)
	hdr.SetAck(0)
	hdr.SetDataOffset(wire.TCPHeaderLen / 4)
	hdr.SetFlags(wire.FlagRST)
	hdr.SetWindow(0)
	hdr.SetUrgent(0)
	hdr.ComputeChecksum(src, dst, wire.TCPHeaderLen)
	return wire.TCPHeaderLen
}
