package ws

import (
	"testing"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("NewHub() clients map is nil")
	}
	if got := hub.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := &Client{id: "a", send: make(chan []byte, 1)}

	if !hub.register(c) {
		t.Fatal("register() = false, want true")
	}
	if got := hub.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	hub.unregister(c)
	hub.unregister(c)
	if got := hub.Count(); got != 0 {
		t.Errorf("Count() after unregister = %d, want 0", got)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	c := &Client{id: "a", send: make(chan []byte, 1)}
	hub.register(c)

	hub.Shutdown()
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after Shutdown()")
	}
	if hub.register(&Client{id: "b", send: make(chan []byte, 1)}) {
		t.Error("register() after Shutdown() = true, want false")
	}
}

func TestClient_TrySendOverflowCloses(t *testing.T) {
	c := &Client{id: "a", send: make(chan []byte, 2)}

	for i := 0; i < 2; i++ {
		if err := c.TrySend([]byte("x")); err != nil {
			t.Fatalf("TrySend() error = %v", err)
		}
	}
	if err := c.TrySend([]byte("x")); err != ErrSlowConsumer {
		t.Errorf("TrySend() on full queue error = %v, want %v", err, ErrSlowConsumer)
	}
	if err := c.TrySend([]byte("x")); err != ErrClosed {
		t.Errorf("TrySend() after overflow error = %v, want %v", err, ErrClosed)
	}
	c.close()
}
