package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/faiface/beep"

	"mcastchat/internal/watch"
)

func newTestUI(t *testing.T) (*UI, *Session, *loopConn) {
	t.Helper()
	s, conn := newTestSession(t)
	ui := NewUI(s, nil)
	ui.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return ui, s, conn
}

func waitForSent(t *testing.T, conn *loopConn, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(conn.sentMessages()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("sent %d messages, want %d", len(conn.sentMessages()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUIEnterSendsMessage(t *testing.T) {
	ui, _, conn := newTestUI(t)

	ui.textarea.SetValue("hi there")
	ui.Update(tea.KeyMsg{Type: tea.KeyEnter})

	deadline := time.Now().Add(2 * time.Second)
	for len(conn.sentMessages()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("nothing sent")
		}
		time.Sleep(time.Millisecond)
	}
	if got := conn.sentMessages()[0]; got != "hi there" {
		t.Fatalf("sent %q", got)
	}
	if ui.textarea.Value() != "" {
		t.Fatalf("input not cleared: %q", ui.textarea.Value())
	}
}

func TestUIEmptyInputIsIgnored(t *testing.T) {
	ui, _, conn := newTestUI(t)

	ui.textarea.SetValue("   ")
	ui.Update(tea.KeyMsg{Type: tea.KeyEnter})
	time.Sleep(20 * time.Millisecond)
	if n := len(conn.sentMessages()); n != 0 {
		t.Fatalf("sent %d messages", n)
	}
}

func TestUIWaitsForTranscript(t *testing.T) {
	ui, s, _ := newTestUI(t)

	if err := s.Send("echo me"); err != nil {
		t.Fatal(err)
	}
	msg := ui.waitForTranscript()()
	tm, ok := msg.(transcriptMsg)
	if !ok {
		t.Fatalf("got %T", msg)
	}
	ui.Update(tm)
	if len(ui.entries) != 1 || ui.entries[0].Text != "echo me" {
		t.Fatalf("entries %+v", ui.entries)
	}
}

func TestUIMarksOwnMessagesAndNotifiesForPeers(t *testing.T) {
	ui, _, _ := newTestUI(t)

	plays := 0
	buf := beep.NewBuffer(beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 1})
	ui.notifier = &Notifier{sound: buf, minGap: 0, play: func(beep.Streamer) { plays++ }}
	ui.pending["mine"] = 1

	ui.applyTranscript(watch.Snapshot{Version: 1, Text: "[10.0.0.1:3000]: mine\n"})
	if !ui.own[0] || plays != 0 {
		t.Fatalf("own=%v plays=%d", ui.own, plays)
	}

	ui.applyTranscript(watch.Snapshot{Version: 2, Text: "[10.0.0.1:3000]: mine\n[10.0.0.9:3000]: yours\n"})
	if ui.own[1] || plays != 1 {
		t.Fatalf("own=%v plays=%d", ui.own, plays)
	}
	if view := ui.View(); !strings.Contains(view, "10.0.0.9:3000") {
		t.Fatalf("sender missing from view:\n%s", view)
	}
}

func TestUIMarksLongOwnMessageByItsEcho(t *testing.T) {
	ui, _, conn := newTestUI(t)

	plays := 0
	buf := beep.NewBuffer(beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 1})
	ui.notifier = &Notifier{sound: buf, minGap: 0, play: func(beep.Streamer) { plays++ }}

	long := strings.Repeat("x", 100)
	ui.send(long)
	waitForSent(t, conn, 1)

	echo := "[10.0.0.1:3000]: " + strings.Repeat("x", 64) + "\n"
	ui.applyTranscript(watch.Snapshot{Version: 1, Text: echo})
	if len(ui.own) != 1 || !ui.own[0] || plays != 0 {
		t.Fatalf("own=%v plays=%d", ui.own, plays)
	}
	if len(ui.pending) != 1 || ui.pending[strings.Repeat("x", 64)] != 0 {
		t.Fatalf("pending %v", ui.pending)
	}
}

func TestEchoText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"Short", "hello", "hello", true},
		{"Exact", strings.Repeat("a", 64), strings.Repeat("a", 64), true},
		{"Cut", strings.Repeat("a", 70), strings.Repeat("a", 64), true},
		// 63 ASCII bytes then a two-byte rune straddling the limit.
		{"SplitRune", strings.Repeat("a", 63) + "é", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := echoText(tt.in)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Fatalf("echoText = %q, %v", got, ok)
			}
		})
	}
}

func TestUIEngineStopped(t *testing.T) {
	ui, s, _ := newTestUI(t)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	msg := ui.waitForTranscript()()
	if _, ok := msg.(engineStoppedMsg); !ok {
		t.Fatalf("got %T", msg)
	}
	ui.Update(msg)
	if !ui.stopped || ui.status != "network stopped" {
		t.Fatalf("stopped=%v status=%q", ui.stopped, ui.status)
	}

	ui.textarea.SetValue("too late")
	ui.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(ui.status, "not sent") {
		t.Fatalf("status %q", ui.status)
	}
}

func TestUIQuit(t *testing.T) {
	ui, _, _ := newTestUI(t)

	_, cmd := ui.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("esc did not quit")
	}
}
