package engine

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"mcastchat/internal/mcast"
)

// TestMulticastRoundTrip runs the engine on a real socket joined to
// 239.1.1.1:5000 next to a second member of the group.
func TestMulticastRoundTrip(t *testing.T) {
	cfg := mcast.DefaultConfig()
	cfg.Group = net.IPv4(239, 1, 1, 1)
	cfg.Port = 5000

	eng, producer, reader, err := Start(context.Background(), cfg)
	var je *mcast.JoinError
	if errors.As(err, &je) {
		t.Skipf("multicast unavailable: %v", err)
	}
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		producer.Close()
		if err := eng.Join(); err != nil {
			t.Errorf("join: %v", err)
		}
	}()

	peer, err := mcast.Listen(context.Background(), cfg)
	if err != nil {
		t.Skipf("second member unavailable: %v", err)
	}
	defer peer.Close()

	if err := producer.Enqueue([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if !readUntil(peer, "hello", 2*time.Second) {
		t.Skip("multicast loopback not delivered on this host")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !waitLog(ctx, reader.Current, "]: hello\n", reader.Changed) {
		t.Fatalf("own message not looped back into log: %q", reader.Current())
	}
	if !strings.Contains(reader.Current(), ":5000]: hello\n") {
		t.Fatalf("source port of looped back message: %q", reader.Current())
	}

	if _, err := peer.WriteTo([]byte("hi"), cfg.GroupAddr()); err != nil {
		t.Fatal(err)
	}
	if !waitLog(ctx, reader.Current, "]: hi\n", reader.Changed) {
		t.Fatalf("peer reply missing from log: %q", reader.Current())
	}
}

func readUntil(conn net.PacketConn, want string, timeout time.Duration) bool {
	conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})
	buf := make([]byte, ReceiveBufferSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			return false
		}
		if string(buf[:n]) == want {
			return true
		}
	}
}

func waitLog(ctx context.Context, current func() string, want string, changed func() <-chan struct{}) bool {
	for {
		ch := changed()
		if strings.Contains(current(), want) {
			return true
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
}
