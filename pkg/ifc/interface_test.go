package ifc

import (
	"testing"

	"github.com/sbcnet/coreip/pkg/link"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

// fakeDriver is a minimal link.Driver for exercising Interface without a
// real SPI/ENC28J60-class backend.
type fakeDriver struct {
	up       bool
	rx       []*pbuf.Pbuf
	tx       []*pbuf.Pbuf
	outRes   link.Result
	outErr   error
	stateVal bool
}

func (d *fakeDriver) Init() error { d.up = true; return nil }
func (d *fakeDriver) Input() (*pbuf.Pbuf, bool) {
	if len(d.rx) == 0 {
		return nil, false
	}
	f := d.rx[0]
	d.rx = d.rx[1:]
	return f, true
}
func (d *fakeDriver) Output(frame *pbuf.Pbuf) (link.Result, error) {
	d.tx = append(d.tx, frame)
	return d.outRes, d.outErr
}
func (d *fakeDriver) State() bool { return d.stateVal }

func newTestInterface() (*Interface, *fakeDriver) {
	drv := &fakeDriver{outRes: link.OK}
	pool := pbuf.New(4, pbuf.DefaultFrameSize)
	iface := New("eth0", drv, pool, wire.MACAddr{2, 0, 0, 0, 0, 7}, pbuf.DefaultMTU)
	return iface, drv
}

func TestConfigureSetsAddresses(t *testing.T) {
	iface, _ := newTestInterface()
	addr := wire.IPv4Addr{10, 0, 0, 5}
	mask := wire.IPv4Addr{255, 255, 255, 0}
	gw := wire.IPv4Addr{10, 0, 0, 1}
	iface.Configure(addr, mask, gw)

	if iface.IPAddr() != addr || iface.Netmask() != mask || iface.Gateway() != gw {
		t.Fatalf("Configure did not stick: addr=%v mask=%v gw=%v", iface.IPAddr(), iface.Netmask(), iface.Gateway())
	}
}

func TestUpSetsFlagsAndSendsGratuitousARP(t *testing.T) {
	iface, drv := newTestInterface()
	iface.Configure(wire.IPv4Addr{10, 0, 0, 5}, wire.IPv4Addr{255, 255, 255, 0}, wire.IPv4Addr{})

	if err := iface.Up(); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if !iface.HasFlag(FlagUp) || !iface.HasFlag(FlagRunning) {
		t.Fatalf("Up should set FlagUp|FlagRunning, got %v", iface.Flags())
	}
	if len(drv.tx) != 1 {
		t.Fatalf("Up should send exactly one gratuitous ARP frame, got %d", len(drv.tx))
	}

	iface.Down()
	if iface.HasFlag(FlagUp) || iface.HasFlag(FlagRunning) {
		t.Fatalf("Down should clear FlagUp|FlagRunning, got %v", iface.Flags())
	}
}

func TestOutputBumpsTxCountersOnSuccess(t *testing.T) {
	iface, drv := newTestInterface()
	drv.outRes = link.OK
	buf, _ := iface.Pool.Allocate()

	if _, err := iface.Output(buf); err != nil {
		t.Fatalf("Output: %v", err)
	}
	c := iface.CountersSnapshot()
	if c.TxPackets != 1 || c.TxErrors != 0 {
		t.Fatalf("counters = %+v, want TxPackets=1 TxErrors=0", c)
	}
}

func TestOutputBumpsTxErrorsOnDriverError(t *testing.T) {
	iface, drv := newTestInterface()
	drv.outRes = link.DriverError
	buf, _ := iface.Pool.Allocate()

	if _, err := iface.Output(buf); err != nil {
		t.Fatalf("Output should surface no Go error for a driver-level failure, got %v", err)
	}
	c := iface.CountersSnapshot()
	if c.TxErrors != 1 || c.TxPackets != 0 {
		t.Fatalf("counters = %+v, want TxErrors=1 TxPackets=0", c)
	}
}

func TestPollDrainsInputAndBumpsRxCounter(t *testing.T) {
	iface, drv := newTestInterface()
	frame, _ := iface.Pool.Allocate()
	drv.rx = append(drv.rx, frame)

	got, ok := iface.Poll()
	if !ok || got != frame {
		t.Fatalf("Poll = (%v, %v), want (%v, true)", got, ok, frame)
	}
	if iface.CountersSnapshot().RxPackets != 1 {
		t.Fatalf("RxPackets = %d, want 1", iface.CountersSnapshot().RxPackets)
	}

	if _, ok := iface.Poll(); ok {
		t.Fatalf("Poll on an empty driver should report ok=false")
	}
}

func TestDropInputBumpsRxDropped(t *testing.T) {
	iface, _ := newTestInterface()
	iface.DropInput()
	iface.DropInput()
	if iface.CountersSnapshot().RxDropped != 2 {
		t.Fatalf("RxDropped = %d, want 2", iface.CountersSnapshot().RxDropped)
	}
}

func TestNextIDIsMonotonicAndStartsAtOne(t *testing.T) {
	iface, _ := newTestInterface()
	ids := []uint16{iface.NextID(), iface.NextID(), iface.NextID()}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("NextID sequence = %v, want [1 2 3]", ids)
	}
}
