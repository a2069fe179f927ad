// Package mcast opens UDP sockets joined to an IPv4 multicast group.
//
// Traffic on the group is unencrypted, unauthenticated and best-effort:
// datagrams may be lost, duplicated or reordered.
package mcast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
)

const (
	// DefaultPort is the UDP port peers bind and send to.
	DefaultPort = 3000
	// DefaultTTL keeps datagrams on the local network segment.
	DefaultTTL = 1
)

// DefaultGroup is the multicast group peers join by default.
var DefaultGroup = net.IPv4(224, 0, 0, 69)

// ErrNotMulticast is returned for a group that is not an IPv4 multicast
// address.
var ErrNotMulticast = errors.New("not an IPv4 multicast address")

// Config describes the socket to open.
type Config struct {
	Group     net.IP
	Port      int
	ReuseAddr bool
	Loopback  bool
	TTL       int
	// Interface to join on. Nil lets the kernel pick.
	Interface *net.Interface
}

// DefaultConfig returns the stock group, port and socket options.
func DefaultConfig() Config {
	return Config{
		Group:     DefaultGroup,
		Port:      DefaultPort,
		ReuseAddr: true,
		Loopback:  true,
		TTL:       DefaultTTL,
	}
}

// GroupAddr returns the group and port as a UDP destination.
func (c Config) GroupAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: c.Group, Port: c.Port}
}

// Validate checks the parameters without touching the network.
func (c Config) Validate() error {
	if ip := c.Group.To4(); ip == nil || !ip.IsMulticast() {
		return &JoinError{Group: c.Group, Err: ErrNotMulticast}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &BindError{Addr: strconv.Itoa(c.Port), Err: fmt.Errorf("port %d out of range", c.Port)}
	}
	if c.TTL < 0 || c.TTL > 255 {
		return &JoinError{Group: c.Group, Err: fmt.Errorf("ttl %d out of range", c.TTL)}
	}
	return nil
}

// BindError reports a failure to create or bind the socket.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// JoinError reports a failure to join the group or set a multicast option.
type JoinError struct {
	Group net.IP
	Err   error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join group %s: %v", e.Group, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// Listen opens a UDP socket on 0.0.0.0:cfg.Port with SO_REUSEADDR set per
// cfg.ReuseAddr, joins cfg.Group and applies the loopback and TTL options.
// The returned conn is driven by the runtime poller, so it never blocks an
// OS thread. On any error the socket is closed before returning.
func Listen(ctx context.Context, cfg Config) (net.PacketConn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(net.IPv4zero.String(), strconv.Itoa(cfg.Port))
	lc := net.ListenConfig{Control: reuseAddrControl(cfg.ReuseAddr)}
	conn, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	if err := join(conn, cfg); err != nil {
		conn.Close()
		return nil, &JoinError{Group: cfg.Group, Err: err}
	}
	return conn, nil
}

func join(conn net.PacketConn, cfg Config) error {
	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(cfg.Interface, &net.UDPAddr{IP: cfg.Group}); err != nil {
		return err
	}
	if err := p.SetMulticastLoopback(cfg.Loopback); err != nil {
		return fmt.Errorf("set loopback: %w", err)
	}
	if cfg.TTL > 0 {
		if err := p.SetMulticastTTL(cfg.TTL); err != nil {
			return fmt.Errorf("set ttl: %w", err)
		}
	}
	if cfg.Interface != nil {
		if err := p.SetMulticastInterface(cfg.Interface); err != nil {
			return fmt.Errorf("set interface: %w", err)
		}
	}
	return nil
}
