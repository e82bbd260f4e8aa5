// Package ifc holds the per-interface state the rest of the core operates
// on (spec.md §3, "NetworkInterface"): its link-layer driver, its ARP
// cache, address configuration, and traffic counters.
package ifc

import (
	"github.com/sbcnet/coreip/pkg/arp"
	"github.com/sbcnet/coreip/pkg/link"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

// Flags records administrative/operational state (spec.md §3).
type Flags uint8

const (
	FlagUp Flags = 1 << iota
	FlagRunning
)

// Counters are the interface's traffic counters (spec.md §3).
type Counters struct {
	RxPackets uint64
	TxPackets uint64
	RxErrors  uint64
	TxErrors  uint64
	RxDropped uint64
}

// Interface is one network interface: a link driver, its address
// configuration, and its ARP cache. It satisfies arp.Port structurally, so
// pkg/arp never needs to import this package.
type Interface struct {
	Name    string
	Driver  link.Driver
	Pool    *pbuf.Pool
	arpTable *arp.Table
	mac     wire.MACAddr
	addr    wire.IPv4Addr
	mask    wire.IPv4Addr
	gateway wire.IPv4Addr
	mtu     int
	flags   Flags

	counters Counters
	nextID   uint16
}

// New constructs an interface. pool is the stack-wide singleton pbuf pool
// (spec.md §5: "process-wide singletons"), not a per-interface one.
func New(name string, driver link.Driver, pool *pbuf.Pool, mac wire.MACAddr, mtu int) *Interface {
	return &Interface{
		Name:     name,
		Driver:   driver,
		Pool:     pool,
		arpTable: arp.NewTable(arp.DefaultTableLength),
		mac:      mac,
		mtu:      mtu,
	}
}

// Table satisfies arp.Port.
func (i *Interface) Table() *arp.Table { return i.arpTable }

func (i *Interface) MAC() wire.MACAddr      { return i.mac }
func (i *Interface) IPAddr() wire.IPv4Addr  { return i.addr }
func (i *Interface) Netmask() wire.IPv4Addr { return i.mask }
func (i *Interface) Gateway() wire.IPv4Addr { return i.gateway }
func (i *Interface) MTU() int               { return i.mtu }
func (i *Interface) Flags() Flags           { return i.flags }

// Configure sets the interface's IPv4 address, netmask, and default
// gateway (spec.md §3).
func (i *Interface) Configure(addr, mask, gateway wire.IPv4Addr) {
	i.addr = addr
	i.mask = mask
	i.gateway = gateway
}

func (i *Interface) SetFlags(f Flags) { i.flags = f }
func (i *Interface) HasFlag(f Flags) bool { return i.flags&f != 0 }

// Up brings the interface administratively and operationally up and
// announces its address with a gratuitous ARP request (spec.md §4.3).
func (i *Interface) Up() error {
	i.flags |= FlagUp | FlagRunning
	return arp.Gratuitous(i)
}

func (i *Interface) Down() {
	i.flags &^= FlagUp | FlagRunning
}

// BufPool satisfies arp.Port.
func (i *Interface) BufPool() *pbuf.Pool { return i.Pool }

// Output hands a frame to the link driver, bumping counters (spec.md §3).
func (i *Interface) Output(frame *pbuf.Pbuf) (link.Result, error) {
	res, err := i.Driver.Output(frame)
	if err != nil || res == link.DriverError || res == link.TXLateCollision {
		i.counters.TxErrors++
		return res, err
	}
	i.counters.TxPackets++
	return res, nil
}

// Poll drains one inbound frame from the driver, if any is available.
func (i *Interface) Poll() (*pbuf.Pbuf, bool) {
	frame, ok := i.Driver.Input()
	if !ok {
		return nil, false
	}
	i.counters.RxPackets++
	return frame, true
}

// DropInput records an inbound frame this core chose not to process.
func (i *Interface) DropInput() {
	i.counters.RxDropped++
}

// CountersSnapshot returns the interface's traffic counters, for the
// metrics collector.
func (i *Interface) CountersSnapshot() Counters {
	return i.counters
}

// NextID returns the next value of the monotonic per-interface IPv4
// identification counter (spec.md §4.5 step 2).
func (i *Interface) NextID() uint16 {
	i.nextID++
	return i.nextID
}
