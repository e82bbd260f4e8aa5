package pbuf

import "testing"

func TestAllocateFreeLifecycle(t *testing.T) {
	pool := New(2, 64)

	a, err := pool.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b, err := pool.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if pool.InUse() != 2 {
		t.Fatalf("InUse = %d, want 2", pool.InUse())
	}

	if _, err := pool.Allocate(); err != ErrOutOfMemory {
		t.Fatalf("Allocate on exhausted pool = %v, want ErrOutOfMemory", err)
	}

	pool.Free(a)
	if pool.InUse() != 1 {
		t.Fatalf("InUse after one Free = %d, want 1", pool.InUse())
	}

	c, err := pool.Allocate()
	if err != nil {
		t.Fatalf("Allocate after Free: %v", err)
	}
	if c != a {
		t.Fatalf("Allocate after Free should reuse the freed slot")
	}
	if c.Len != 0 {
		t.Fatalf("reallocated buffer Len = %d, want 0", c.Len)
	}

	pool.Free(b)
	pool.Free(c)
	if pool.InUse() != 0 {
		t.Fatalf("InUse after freeing all = %d, want 0", pool.InUse())
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	pool := New(1, 64)
	pool.Free(nil) // must not panic
}

func TestBytesReflectsLen(t *testing.T) {
	pool := New(1, 64)
	buf, _ := pool.Allocate()
	buf.Len = 10
	copy(buf.Data, []byte("0123456789extra"))
	if string(buf.Bytes()) != "0123456789" {
		t.Errorf("Bytes() = %q, want %q", buf.Bytes(), "0123456789")
	}
}
