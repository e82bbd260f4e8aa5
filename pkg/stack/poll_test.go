package stack

import (
	"errors"
	"testing"

	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/link"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

type pollDriver struct {
	rx []*pbuf.Pbuf
}

func (d *pollDriver) Init() error { return nil }
func (d *pollDriver) Input() (*pbuf.Pbuf, bool) {
	if len(d.rx) == 0 {
		return nil, false
	}
	f := d.rx[0]
	d.rx = d.rx[1:]
	return f, true
}
func (d *pollDriver) Output(frame *pbuf.Pbuf) (link.Result, error) { return link.OK, nil }
func (d *pollDriver) State() bool                                  { return true }

func frameWithType(pool *pbuf.Pool, et wire.Ethertype) *pbuf.Pbuf {
	buf, _ := pool.Allocate()
	buf.Len = wire.EthernetHeaderLen
	wire.Ethernet(buf.Data[:buf.Len]).SetType(et)
	return buf
}

func TestPollInterfaceDispatchesRegisteredHandlerAndFreesFrame(t *testing.T) {
	s, _ := newTestStack()
	drv := &pollDriver{}
	iface := ifc.New("eth0", drv, s.Pool, wire.MACAddr{2, 0, 0, 0, 0, 1}, pbuf.DefaultMTU)
	s.AddInterface(iface)

	drv.rx = append(drv.rx, frameWithType(s.Pool, wire.EthertypeARP))

	var gotType wire.Ethertype
	s.SetEthertypeHandler(wire.EthertypeARP, func(s *Stack, iface *ifc.Interface, raw []byte) error {
		gotType = wire.Ethernet(raw).Type()
		return nil
	})

	before := s.Pool.InUse()
	s.PollInterface(iface)
	if gotType != wire.EthertypeARP {
		t.Fatalf("handler did not see the dispatched frame")
	}
	if s.Pool.InUse() != before {
		t.Fatalf("PollInterface must free the frame after dispatch: InUse=%d before=%d", s.Pool.InUse(), before)
	}
}

func TestPollInterfaceDropsUnregisteredEthertype(t *testing.T) {
	s, _ := newTestStack()
	drv := &pollDriver{}
	iface := ifc.New("eth0", drv, s.Pool, wire.MACAddr{2, 0, 0, 0, 0, 1}, pbuf.DefaultMTU)
	s.AddInterface(iface)
	drv.rx = append(drv.rx, frameWithType(s.Pool, wire.EthertypeIPv4))

	before := s.Pool.InUse()
	s.PollInterface(iface)
	if s.Pool.InUse() != before {
		t.Fatalf("unregistered ethertype frame must still be freed")
	}
	if iface.CountersSnapshot().RxDropped != 1 {
		t.Fatalf("RxDropped = %d, want 1", iface.CountersSnapshot().RxDropped)
	}
}

func TestPollInterfaceContinuesAfterHandlerError(t *testing.T) {
	s, _ := newTestStack()
	drv := &pollDriver{}
	iface := ifc.New("eth0", drv, s.Pool, wire.MACAddr{2, 0, 0, 0, 0, 1}, pbuf.DefaultMTU)
	s.AddInterface(iface)
	drv.rx = append(drv.rx, frameWithType(s.Pool, wire.EthertypeARP), frameWithType(s.Pool, wire.EthertypeARP))

	calls := 0
	s.SetEthertypeHandler(wire.EthertypeARP, func(s *Stack, iface *ifc.Interface, raw []byte) error {
		calls++
		return errors.New("boom")
	})

	s.PollInterface(iface)
	if calls != 2 {
		t.Fatalf("a handler error on one frame must not stop draining the rest, got %d calls", calls)
	}
}
