package stack

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sbcnet/coreip/pkg/clock"
	"github.com/sbcnet/coreip/pkg/ifc"
	"github.com/sbcnet/coreip/pkg/pbuf"
	"github.com/sbcnet/coreip/pkg/wire"
)

func newTestStack() (*Stack, *clock.Fake) {
	fc := clock.NewFake()
	s := New("test-host", pbuf.New(4, pbuf.DefaultFrameSize), fc, nil)
	return s, fc
}

func TestSetRouteDerivesDestNet(t *testing.T) {
	s, _ := newTestStack()
	mask := wire.IPv4Addr{255, 255, 255, 0}
	gw := wire.IPv4Addr{10, 0, 0, 1}
	if err := s.SetRoute(mask, gw, 0); err != nil {
		t.Fatalf("SetRoute: %v", err)
	}
	r, err := s.RouteLookup(wire.IPv4Addr{10, 0, 0, 42})
	if err != nil {
		t.Fatalf("RouteLookup: %v", err)
	}
	want := Route{
		DestNet: wire.IPv4Addr{10, 0, 0, 0},
		NetMask: mask,
		Gateway: gw,
		IfIndex: 0,
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("RouteLookup result mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteTableFull(t *testing.T) {
	s, _ := newTestStack()
	for i := 0; i < DefaultRouteTableSize; i++ {
		gw := wire.IPv4Addr{10, byte(i), 0, 1}
		if err := s.SetRoute(wire.IPv4Addr{255, 255, 255, 0}, gw, 0); err != nil {
			t.Fatalf("SetRoute %d: %v", i, err)
		}
	}
	if err := s.SetRoute(wire.IPv4Addr{255, 255, 255, 0}, wire.IPv4Addr{10, 99, 0, 1}, 0); err != ErrRouteTableFull {
		t.Fatalf("SetRoute on full table = %v, want ErrRouteTableFull", err)
	}
}

func TestRouteLookupPrefersSpecificOverDefault(t *testing.T) {
	s, _ := newTestStack()
	_ = s.SetRoute(wire.IPv4Addr{0, 0, 0, 0}, wire.IPv4Addr{10, 0, 0, 1}, 0)
	_ = s.SetRoute(wire.IPv4Addr{255, 255, 255, 0}, wire.IPv4Addr{192, 168, 1, 1}, 1)

	r, err := s.RouteLookup(wire.IPv4Addr{192, 168, 1, 50})
	if err != nil {
		t.Fatalf("RouteLookup: %v", err)
	}
	if r.IfIndex != 1 {
		t.Fatalf("RouteLookup should prefer the specific route, got IfIndex=%d", r.IfIndex)
	}

	r, err = s.RouteLookup(wire.IPv4Addr{8, 8, 8, 8})
	if err != nil {
		t.Fatalf("RouteLookup (default): %v", err)
	}
	if r.IfIndex != 0 {
		t.Fatalf("RouteLookup should fall back to the default route, got IfIndex=%d", r.IfIndex)
	}
}

func TestRouteLookupNoRoute(t *testing.T) {
	s, _ := newTestStack()
	if _, err := s.RouteLookup(wire.IPv4Addr{1, 2, 3, 4}); err != ErrNoRoute {
		t.Fatalf("RouteLookup on empty table = %v, want ErrNoRoute", err)
	}
}

func TestProtocolHandlerRoundTrip(t *testing.T) {
	s, _ := newTestStack()
	if _, ok := s.ProtocolHandler(wire.ProtoUDP); ok {
		t.Fatalf("unregistered protocol handler should report ok=false")
	}
	called := false
	s.SetProtocolHandler(wire.ProtoUDP, func(s *Stack, iface *ifc.Interface, srcIP, dstIP wire.IPv4Addr, payload []byte) error {
		called = true
		return nil
	})
	fn, ok := s.ProtocolHandler(wire.ProtoUDP)
	if !ok {
		t.Fatalf("registered protocol handler should report ok=true")
	}
	if err := fn(s, nil, wire.IPv4Addr{}, wire.IPv4Addr{}, nil); err != nil {
		t.Fatalf("handler call: %v", err)
	}
	if !called {
		t.Fatalf("registered handler was not invoked")
	}
}

func TestTimersFirstCallArmsWithoutFiring(t *testing.T) {
	s, fc := newTestStack()
	fires := 0
	s.SetTimer(100, func() { fires++ })

	s.Timers()
	if fires != 0 {
		t.Fatalf("first Timers() call should only arm the timer, got %d fires", fires)
	}

	fc.Advance(50 * time.Millisecond)
	s.Timers()
	if fires != 0 {
		t.Fatalf("timer should not fire before its interval elapses, got %d fires", fires)
	}

	fc.Advance(60 * time.Millisecond)
	s.Timers()
	if fires != 1 {
		t.Fatalf("timer should fire once its interval elapses, got %d fires", fires)
	}
}
