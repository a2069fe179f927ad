package main

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/pterm/pterm"

	"mcastchat/internal/queue"
)

const notice = "All communication in this chat room is unencrypted and multicast."

// RunLine is the plain console UI: every stdin line is sent as one message
// and new transcript lines are printed as they arrive. It returns when
// input ends, on /quit, when ctx is cancelled or when the engine stops, and
// always closes the session before returning.
func (s *Session) RunLine(ctx context.Context, in io.Reader, out io.Writer) error {
	pterm.Fprintln(out, pterm.Gray(notice))
	pterm.Fprintln(out, pterm.Gray("Commands: /quit to exit"))

	done := make(chan struct{})
	defer close(done)
	lines := scanLines(in, done, s)

	printed := 0
	flush := func() {
		text := s.transcript.Current()
		if len(text) > printed {
			printEntries(out, parseTranscript(text[printed:]))
			printed = len(text)
		}
	}

loop:
	for {
		changed := s.transcript.Changed()
		flush()

		select {
		case <-ctx.Done():
			break loop

		case line, ok := <-lines:
			if !ok || line == "/quit" {
				break loop
			}
			if line == "" {
				continue
			}
			if err := s.Send(line); err != nil {
				if errors.Is(err, queue.ErrClosed) {
					break loop
				}
				return err
			}

		case <-changed:

		case <-s.engine.Done():
			break loop
		}
	}

	err := s.Close()
	flush()
	return err
}

// scanLines reads in on its own goroutine. A read blocked on stdin can
// outlive RunLine; it exits on the next line or EOF.
func scanLines(in io.Reader, done <-chan struct{}, s *Session) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			s.logger.Error().Err(err).Msg("read input")
		}
	}()
	return lines
}

func printEntries(out io.Writer, entries []Entry) {
	for _, e := range entries {
		if e.Sender == "" {
			pterm.Fprintln(out, e.Text)
			continue
		}
		pterm.Fprintln(out, pterm.FgGreen.Sprint("["+e.Sender+"]:"), e.Text)
	}
}
