package wire

// Checksum accumulates the RFC 1071 one's-complement sum of b into a running
// partial sum, so callers can fold several discontiguous regions (e.g. a
// pseudo-header followed by a transport header and payload) before a single
// final Fold call. The zero value of the accumulator is a valid starting
// point.
type Checksum uint32

// Add folds another byte region into the running sum.
func (c Checksum) Add(b []byte) Checksum {
	sum := uint32(c)
	n := len(b)
	i := 0
	for ; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if i < n {
		sum += uint32(b[i]) << 8
	}
	return Checksum(sum)
}

// Add16 folds a single big-endian 16-bit word into the running sum. Used for
// pseudo-header fields that are not already laid out as bytes.
func (c Checksum) Add16(v uint16) Checksum {
	return Checksum(uint32(c) + uint32(v))
}

// Fold reduces the accumulator to the final one's-complement checksum value
// (RFC 1071 §4(B)), including the complement. A correctly-computed checksum
// field, when included in the summed region, folds to 0x0000.
func (c Checksum) Fold() uint16 {
	sum := uint32(c)
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// HeaderChecksum computes the one's-complement checksum of a header region
// exactly as §4.4 and §6 require: the sum over the whole region, including
// whatever value is currently in the checksum field, must sum to all-ones
// (which Fold reports as 0x0000) for the header to be considered valid.
func HeaderChecksum(b []byte) uint16 {
	return Checksum(0).Add(b).Fold()
}

// VerifyChecksum reports whether the one's-complement sum of b (with its
// embedded checksum field already set) folds to zero, per §4.4.1 and the
// TESTABLE PROPERTIES round-trip law. Fold already applies the final
// one's-complement, so a correctly-computed checksum field makes the region
// sum to all-ones before that complement, which folds to 0x0000, not 0xFFFF.
func VerifyChecksum(b []byte) bool {
	return Checksum(0).Add(b).Fold() == 0
}

// PseudoHeaderSum folds the IPv4 pseudo-header (srcIP, dstIP, zero,
// protocol, length) used by both UDP and TCP checksums (§4.7, §4.8.3).
func PseudoHeaderSum(src, dst IPv4Addr, protocol uint8, length uint16) Checksum {
	var c Checksum
	c = c.Add(src[:])
	c = c.Add(dst[:])
	c = c.Add16(uint16(protocol))
	c = c.Add16(length)
	return c
}
