package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mcastchat/internal/engine"
	"mcastchat/internal/metrics"
	"mcastchat/internal/queue"
	"mcastchat/internal/watch"
)

// Session ties the network engine to the UI: it holds the producer handle
// the UI sends through, the transcript reader, and the optional status
// server.
type Session struct {
	engine     *engine.Engine
	producer   *queue.Producer
	transcript *watch.Reader
	logger     zerolog.Logger

	status *http.Server

	closeOnce sync.Once
	closeErr  error
}

// NewSession binds the multicast socket, starts the engine and, if
// configured, the status server. Errors here are configuration errors.
func NewSession(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Session, error) {
	eng, producer, reader, err := engine.Start(ctx, cfg.Mcast,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.Recorder{}),
	)
	if err != nil {
		return nil, err
	}
	s := newSession(eng, producer, reader, logger)

	if cfg.StatusAddr != "" {
		if err := s.serveStatus(cfg.StatusAddr); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func newSession(eng *engine.Engine, producer *queue.Producer, reader *watch.Reader, logger zerolog.Logger) *Session {
	return &Session{
		engine:     eng,
		producer:   producer,
		transcript: reader,
		logger:     logger,
	}
}

// Send queues one chat message.
func (s *Session) Send(text string) error {
	return s.producer.Enqueue([]byte(text))
}

// Close closes the producer, waits for the engine to drain and stop, and
// shuts the status server down. It returns the engine's terminal error and
// is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// The producer must be closed before joining or Join never returns.
		s.producer.Close()
		s.closeErr = s.engine.Join()

		if s.status != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.status.Shutdown(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("status server shutdown")
			}
		}
		s.logger.Info().Msg("session closed")
	})
	return s.closeErr
}

func (s *Session) serveStatus(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	s.status = &http.Server{
		Handler:      newStatusRouter(s.logger, s),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("status server listening")
		if err := s.status.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("status server failed")
		}
	}()
	return nil
}
