package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mcastchat/internal/engine"
	"mcastchat/internal/watch"
)

// Styles for the TUI
var (
	// Color scheme
	primaryColor    = lipgloss.Color("#7C3AED") // Purple
	accentColor     = lipgloss.Color("#10B981") // Green
	warningColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor      = lipgloss.Color("#EF4444") // Red
	mutedColor      = lipgloss.Color("#6B7280") // Gray
	backgroundColor = lipgloss.Color("#1F2937") // Dark gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Italic(true)

	senderPanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor).
				Padding(0, 1)

	messagePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor).
				Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(backgroundColor).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	peerMessageStyle = lipgloss.NewStyle().
				Foreground(accentColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

const senderPanelWidth = 30

// UI is the bubbletea model.
type UI struct {
	session  *Session
	notifier *Notifier

	entries []Entry
	own     []bool
	pending map[string]int
	version uint64

	viewport viewport.Model
	textarea textarea.Model
	ready    bool
	width    int
	height   int
	showHelp bool

	lastUpdate time.Time
	stopped    bool
	status     string
}

// transcriptMsg carries a newer transcript snapshot.
type transcriptMsg watch.Snapshot

// engineStoppedMsg reports that the network engine has stopped.
type engineStoppedMsg struct{}

// tickMsg is sent periodically to refresh the status bar.
type tickMsg time.Time

// NewUI creates the TUI for a session. notifier may be nil.
func NewUI(s *Session, notifier *Notifier) *UI {
	ta := textarea.New()
	ta.Placeholder = "Press Enter to send chat message..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 500
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent("")

	return &UI{
		session:    s,
		notifier:   notifier,
		pending:    make(map[string]int),
		viewport:   vp,
		textarea:   ta,
		lastUpdate: time.Now(),
	}
}

// RunTUI runs the TUI until the user quits, then closes the session.
func (s *Session) RunTUI(ctx context.Context, notifier *Notifier) error {
	p := tea.NewProgram(NewUI(s, notifier), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		s.logger.Warn().Err(err).Msg("tui exited with error")
	}
	return s.Close()
}

func (ui *UI) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		ui.waitForTranscript(),
		ui.tickCmd(),
	)
}

// waitForTranscript waits for a snapshot newer than the one displayed, or
// for the engine to stop.
func (ui *UI) waitForTranscript() tea.Cmd {
	reader := ui.session.transcript
	done := ui.session.engine.Done()
	version := ui.version
	return func() tea.Msg {
		for {
			changed := reader.Changed()
			if s := reader.Snapshot(); s.Version > version {
				return transcriptMsg(s)
			}
			select {
			case <-changed:
			case <-done:
				return engineStoppedMsg{}
			}
		}
	}
}

func (ui *UI) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (ui *UI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	ui.textarea, tiCmd = ui.textarea.Update(msg)
	ui.viewport, vpCmd = ui.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return ui, tea.Quit

		case tea.KeyCtrlH:
			ui.showHelp = !ui.showHelp
			ui.updateViewport()
			return ui, nil

		case tea.KeyEnter:
			input := strings.TrimSpace(ui.textarea.Value())
			ui.textarea.Reset()
			if input == "" {
				return ui, nil
			}
			if input == "/quit" || input == "/exit" {
				return ui, tea.Quit
			}
			ui.send(input)
			return ui, nil
		}

	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.height = msg.Height
		ui.ready = true

		headerHeight := 4
		footerHeight := 5
		statusBarHeight := 1
		ui.viewport.Width = ui.width - senderPanelWidth - 5
		ui.viewport.Height = ui.height - headerHeight - footerHeight - statusBarHeight
		ui.textarea.SetWidth(ui.width - 4)
		ui.updateViewport()

	case transcriptMsg:
		ui.applyTranscript(watch.Snapshot(msg))
		return ui, ui.waitForTranscript()

	case engineStoppedMsg:
		ui.stopped = true
		if err := ui.session.engine.Join(); err != nil {
			ui.status = fmt.Sprintf("network stopped: %v", err)
		} else {
			ui.status = "network stopped"
		}
		return ui, nil

	case tickMsg:
		ui.lastUpdate = time.Time(msg)
		return ui, ui.tickCmd()
	}

	return ui, tea.Batch(tiCmd, vpCmd)
}

func (ui *UI) send(text string) {
	if ui.stopped {
		ui.status = "network stopped, message not sent"
		return
	}
	if err := ui.session.Send(text); err != nil {
		ui.status = fmt.Sprintf("not sent: %v", err)
		return
	}
	if echo, ok := echoText(text); ok {
		ui.pending[echo]++
	}
	ui.status = ""
}

// echoText is how text comes back through loopback: receivers keep only
// the first engine.ReceiveBufferSize bytes, and a cut that splits a rune
// makes the datagram invalid, so it never comes back at all.
func echoText(text string) (string, bool) {
	if len(text) <= engine.ReceiveBufferSize {
		return text, true
	}
	cut := text[:engine.ReceiveBufferSize]
	return cut, utf8.ValidString(cut)
}

// applyTranscript folds a snapshot into the entry list. An entry whose text
// matches a message we sent and have not yet seen echoed is marked as ours.
func (ui *UI) applyTranscript(s watch.Snapshot) {
	ui.version = s.Version
	entries := parseTranscript(s.Text)

	fromPeer := false
	for i := len(ui.own); i < len(entries); i++ {
		mine := ui.pending[entries[i].Text] > 0
		if mine {
			ui.pending[entries[i].Text]--
		} else {
			fromPeer = true
		}
		ui.own = append(ui.own, mine)
	}
	ui.entries = entries
	if fromPeer {
		ui.notifier.Notify()
	}

	ui.updateViewport()
	ui.viewport.GotoBottom()
}

func (ui *UI) updateViewport() {
	var content strings.Builder

	if ui.showHelp {
		content.WriteString(renderHelp())
	} else {
		for i, e := range ui.entries {
			content.WriteString(ui.renderEntry(e, i < len(ui.own) && ui.own[i]))
			content.WriteString("\n")
		}
	}

	ui.viewport.SetContent(content.String())
}

func (ui *UI) renderEntry(e Entry, mine bool) string {
	if e.Sender == "" {
		return e.Text
	}
	style := peerMessageStyle
	if mine {
		style = userMessageStyle
	}
	return fmt.Sprintf("%s %s", style.Render("["+e.Sender+"]:"), e.Text)
}

func renderHelp() string {
	return `
MULTICAST CHAT - HELP

MESSAGING:
  Type and press Enter to send a message to everyone on the group.
  Messages are sent as raw UTF-8 datagrams; long messages are cut
  to 64 bytes by receivers.

SECURITY:
  Nothing is encrypted or authenticated. Anyone on the network
  segment can read and forge messages.

KEYBOARD SHORTCUTS:
  Ctrl+H              Toggle this help screen
  Ctrl+C / Esc        Quit
  /quit               Quit

Press Ctrl+H to close this help screen
`
}

func (ui *UI) View() string {
	if !ui.ready {
		return "\n  Initializing chat...\n"
	}

	header := headerStyle.Render("Chat Log")
	banner := noticeStyle.Render(notice)

	messagePanel := messagePanelStyle.Width(ui.width - senderPanelWidth - 5).Height(ui.viewport.Height + 2).Render(
		fmt.Sprintf("Messages\n%s", ui.viewport.View()))
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, messagePanel, ui.renderSenderPanel())

	inputArea := inputStyle.Width(ui.width - 4).Render(
		fmt.Sprintf("Input (Ctrl+H for help)\n%s", ui.textarea.View()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		banner,
		mainContent,
		ui.renderStatusBar(),
		inputArea,
	)
}

// renderSenderPanel lists every address seen in the transcript. Multicast
// has no membership list, so this is the closest thing to a peer list.
func (ui *UI) renderSenderPanel() string {
	var content strings.Builder

	content.WriteString("Seen Senders\n")
	content.WriteString(strings.Repeat("─", senderPanelWidth-2) + "\n")

	seen := senders(ui.entries)
	if len(seen) == 0 {
		content.WriteString("  Nobody has spoken yet\n")
	}
	for i, addr := range seen {
		if i >= 15 {
			content.WriteString(fmt.Sprintf("  ... and %d more\n", len(seen)-15))
			break
		}
		content.WriteString(fmt.Sprintf("  %s %s\n", peerMessageStyle.Render("●"), addr))
	}

	return senderPanelStyle.Width(senderPanelWidth).Height(ui.viewport.Height + 2).Render(content.String())
}

func (ui *UI) renderStatusBar() string {
	eng := ui.session.engine
	left := fmt.Sprintf("Group: %s", eng.Destination())
	if ui.status != "" {
		left = errorStyle.Render(ui.status)
	}
	right := fmt.Sprintf("Local: %s | Lines: %d | %s | %s",
		eng.LocalAddr(), len(ui.entries), eng.State(), ui.lastUpdate.Format("15:04:05"))

	totalWidth := ui.width - 4
	spacing := totalWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 0 {
		spacing = 0
	}

	return statusBarStyle.Width(ui.width - 4).Render(left + strings.Repeat(" ", spacing) + right)
}
