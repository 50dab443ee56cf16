package server

import "testing"

func TestClientConnEnqueueAfterCloseDoesNotPanic(t *testing.T) {
	c := NewClientConn(nil)
	c.Close()
	c.Close() // 幂等
	c.Enqueue([]byte(`{"type":"field"}`))
}

func TestClientConnEnqueueDropsWhenFull(t *testing.T) {
	c := NewClientConn(nil)
	for i := 0; i < cap(c.send)+16; i++ {
		c.Enqueue([]byte("x"))
	}
	if len(c.send) != cap(c.send) {
		t.Fatalf("expected full send queue, got %d/%d", len(c.send), cap(c.send))
	}
}
