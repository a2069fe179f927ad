// Package engine runs the network side of the chat: it owns the multicast
// socket, sends queued outbound messages, appends decoded inbound datagrams
// to the shared transcript, and stops once every producer handle is closed.
//
// Delivery is best-effort and unordered across senders, as UDP multicast is.
//
// Lifecycle:
//
//	eng, producer, log, err := engine.Start(ctx, cfg)
//	...
//	producer.Enqueue([]byte("hello"))
//	fmt.Print(log.Current())
//	...
//	producer.Close() // every handle, including clones
//	err = eng.Join()
//
// Closing the producers must come before Join; joining first deadlocks.
//
// The loop goroutine is the only writer to the socket and the transcript.
// Reads happen on a helper goroutine owned by the engine, since a blocking
// ReadFrom cannot take part in a select; net.PacketConn allows a concurrent
// reader and writer. The helper is joined before Join returns.
package engine

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"mcastchat/internal/mcast"
	"mcastchat/internal/queue"
	"mcastchat/internal/watch"
)

// ReceiveBufferSize bounds inbound datagrams. Longer payloads are truncated
// by the socket before decoding.
const ReceiveBufferSize = 64

// ErrClosed is returned by Producer.Enqueue once the handle is closed or the
// engine has stopped.
var ErrClosed = queue.ErrClosed

// State is the engine's lifecycle stage.
type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IOError is a fatal send or receive failure. It is the result of Join.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

type datagram struct {
	payload []byte
	from    net.Addr
}

// Engine is the handle on a running network loop.
type Engine struct {
	conn    net.PacketConn
	dest    net.Addr
	queue   *queue.Queue
	log     *watch.Publisher
	logger  zerolog.Logger
	metrics Metrics

	// truncated reports a read error that still delivered a cut datagram.
	truncated func(error) bool

	inbound chan datagram
	readErr chan error
	stop    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	state atomic.Int32
	err   error
}

// Start binds a socket for cfg and spawns the engine on it. Messages are
// sent to cfg.Group on the port the socket is bound to. Bind and join
// failures are returned before any goroutine starts.
func Start(ctx context.Context, cfg mcast.Config, opts ...Option) (*Engine, *queue.Producer, *watch.Reader, error) {
	conn, err := mcast.Listen(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	dest := cfg.GroupAddr()
	if local, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		dest.Port = local.Port
	}
	eng, producer, reader := Spawn(conn, dest, opts...)
	return eng, producer, reader, nil
}

// Spawn runs the engine on an already configured conn. The engine takes
// ownership of conn and closes it when it stops.
func Spawn(conn net.PacketConn, dest net.Addr, opts ...Option) (*Engine, *queue.Producer, *watch.Reader) {
	e, producer, reader := newEngine(conn, dest, opts...)
	e.wg.Add(1)
	go e.receive()
	go e.run()
	return e, producer, reader
}

func newEngine(conn net.PacketConn, dest net.Addr, opts ...Option) (*Engine, *queue.Producer, *watch.Reader) {
	o := options{
		logger:  zerolog.Nop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	q, producer := queue.New()
	pub, reader := watch.New()
	e := &Engine{
		conn:    conn,
		dest:    dest,
		queue:   q,
		log:     pub,
		logger:  o.logger.With().Str("component", "engine").Logger(),
		metrics: o.metrics,
		inbound: make(chan datagram),
		readErr: make(chan error, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),

		truncated: isTruncated,
	}
	return e, producer, reader
}

// Join waits for the engine to stop and returns its terminal error, nil on
// a normal shutdown. Call it only after every producer handle is closed.
// It may be called more than once.
func (e *Engine) Join() error {
	<-e.done
	return e.err
}

// Done is closed once the engine has stopped and released its socket.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// State reports the current lifecycle stage.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// LocalAddr is the address the socket is bound to.
func (e *Engine) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// Destination is where outbound messages are sent.
func (e *Engine) Destination() net.Addr {
	return e.dest
}

func (e *Engine) run() {
	e.logger.Info().
		Str("local", e.conn.LocalAddr().String()).
		Str("group", e.dest.String()).
		Msg("engine running")

	err := e.loop()

	e.queue.Stop()
	close(e.stop)
	if cerr := e.conn.Close(); cerr != nil {
		e.logger.Warn().Err(cerr).Msg("close socket")
	}
	e.wg.Wait()

	if err != nil {
		e.logger.Error().Err(err).Msg("engine failed")
	} else {
		e.logger.Info().Msg("engine stopped")
	}
	e.err = err
	e.state.Store(int32(Stopped))
	close(e.done)
}

// loop polls the outbound queue first on every iteration so local sends are
// never starved by inbound traffic. It returns nil only once the queue is
// closed and empty.
func (e *Engine) loop() error {
	for {
		msg, status := e.queue.Pop()
		switch status {
		case queue.Pending:
			if e.queue.Closed() {
				e.state.Store(int32(Draining))
			}
			if err := e.send(msg); err != nil {
				return err
			}
			continue
		case queue.Drained:
			return nil
		}

		select {
		case <-e.queue.Ready():
		case d := <-e.inbound:
			e.accept(d)
		case err := <-e.readErr:
			return &IOError{Op: "receive", Err: err}
		}
	}
}

func (e *Engine) send(msg []byte) error {
	n, err := e.conn.WriteTo(msg, e.dest)
	if err != nil {
		return &IOError{Op: "send", Err: err}
	}
	e.metrics.MessageSent(n)
	return nil
}

func (e *Engine) accept(d datagram) {
	if !utf8.Valid(d.payload) {
		e.metrics.DatagramDropped()
		e.logger.Debug().
			Str("from", d.from.String()).
			Int("size", len(d.payload)).
			Msg("dropped datagram with invalid utf-8")
		return
	}
	e.log.Append(fmt.Sprintf("[%s]: %s\n", d.from, d.payload))
	e.metrics.DatagramReceived(len(d.payload))
}

// receive hands datagrams to the loop until the socket is closed.
func (e *Engine) receive() {
	defer e.wg.Done()

	for {
		buf := make([]byte, ReceiveBufferSize)
		n, from, err := e.conn.ReadFrom(buf)
		if err != nil && n > 0 && e.truncated(err) {
			err = nil
		}
		if err != nil {
			select {
			case <-e.stop:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			e.readErr <- err
			return
		}

		select {
		case e.inbound <- datagram{payload: buf[:n], from: from}:
		case <-e.stop:
			return
		}
	}
}
