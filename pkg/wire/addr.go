package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// MACAddr is a 6-byte Ethernet hardware address.
type MACAddr [6]byte

// BroadcastMAC is the link-layer broadcast address.
var BroadcastMAC = MACAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MACAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is the all-zero address (an unset field).
func (m MACAddr) IsZero() bool {
	return m == MACAddr{}
}

// IPv4Addr is a 4-byte IPv4 address, host order within the array (index 0
// is the most significant octet), matching the wire's network byte order.
type IPv4Addr [4]byte

// String renders the dotted-quad representation. spec.md §9 notes that the
// original source's stack_ip4addr_ntoa reads an uninitialized variable
// before it is assigned; that accident is not reproduced here.
func (a IPv4Addr) String() string {
	var b strings.Builder
	for i, octet := range a {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(int(octet)))
	}
	return b.String()
}

// Uint32 returns the address as a big-endian-derived uint32 for masking and
// comparison, e.g. destNet == destIP & netMask (§3 Route entry invariant).
func (a IPv4Addr) Uint32() uint32 {
	return uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
}

// IPv4AddrFromUint32 is the inverse of Uint32.
func IPv4AddrFromUint32(v uint32) IPv4Addr {
	return IPv4Addr{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// Mask applies netMask to a, returning the network address (destNet in the
// route table's terms, §3).
func (a IPv4Addr) Mask(netMask IPv4Addr) IPv4Addr {
	return IPv4AddrFromUint32(a.Uint32() & netMask.Uint32())
}

// IsZero reports whether a is 0.0.0.0.
func (a IPv4Addr) IsZero() bool {
	return a == IPv4Addr{}
}

// Broadcast returns the subnet broadcast address for a (an interface's own
// address) under netMask: the host bits all set to 1.
func (a IPv4Addr) Broadcast(netMask IPv4Addr) IPv4Addr {
	network := a.Uint32() & netMask.Uint32()
	hostMask := ^netMask.Uint32()
	return IPv4AddrFromUint32(network | hostMask)
}

// ParseIPv4 parses a dotted-quad string into an IPv4Addr.
func ParseIPv4(s string) (IPv4Addr, error) {
	var a IPv4Addr
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return a, fmt.Errorf("wire: malformed IPv4 address %q", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return a, fmt.Errorf("wire: malformed IPv4 address %q", s)
		}
		a[i] = byte(n)
	}
	return a, nil
}
