package wire

import "testing"

func TestIPv4AddrMaskAndBroadcast(t *testing.T) {
	addr := IPv4Addr{192, 168, 1, 19}
	mask := IPv4Addr{255, 255, 255, 0}

	if got := addr.Mask(mask); got != (IPv4Addr{192, 168, 1, 0}) {
		t.Errorf("Mask = %v, want 192.168.1.0", got)
	}
	if got := addr.Broadcast(mask); got != (IPv4Addr{192, 168, 1, 255}) {
		t.Errorf("Broadcast = %v, want 192.168.1.255", got)
	}
}

func TestParseIPv4RoundTrip(t *testing.T) {
	a, err := ParseIPv4("10.20.30.40")
	if err != nil {
		t.Fatalf("ParseIPv4: %v", err)
	}
	if a.String() != "10.20.30.40" {
		t.Errorf("String() = %q, want %q", a.String(), "10.20.30.40")
	}
}

func TestParseIPv4Malformed(t *testing.T) {
	for _, s := range []string{"1.2.3", "1.2.3.256", "a.b.c.d", ""} {
		if _, err := ParseIPv4(s); err == nil {
			t.Errorf("ParseIPv4(%q) should have failed", s)
		}
	}
}
