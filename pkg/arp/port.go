package arp

import (
	"github.com/sbcnet/coreip/pkg/link"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

// Port is the narrow view of an interface that the resolver and gate need.
// pkg/ifc.Interface satisfies this structurally; arp never imports ifc, so
// the two packages don't cycle.
type Port interface {
	MAC() wire.MACAddr
	IPAddr() wire.IPv4Addr
	Table() *Table
	BufPool() *pbuf.Pool
	// Output hands a fully addressed Ethernet frame to the link driver.
	Output(frame *pbuf.Pbuf) (link.Result, error)
}
