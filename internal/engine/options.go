package engine

import "github.com/rs/zerolog"

// Metrics receives engine counters. Implementations must be safe to call
// from the engine goroutine.
type Metrics interface {
	MessageSent(bytes int)
	DatagramReceived(bytes int)
	DatagramDropped()
}

type nopMetrics struct{}

func (nopMetrics) MessageSent(int)      {}
func (nopMetrics) DatagramReceived(int) {}
func (nopMetrics) DatagramDropped()     {}

type options struct {
	logger  zerolog.Logger
	metrics Metrics
}

// Option configures an engine.
type Option func(*options)

// WithLogger sets the process logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the counter sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
