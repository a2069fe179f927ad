package main

import "strings"

// Entry is one chat line of the transcript. Messages that contained newlines
// arrive as several log lines and are folded back into one entry.
type Entry struct {
	Sender string
	Text   string
}

// parseTranscript splits the engine's log ("[addr]: text\n" lines) into
// entries.
func parseTranscript(log string) []Entry {
	log = strings.TrimSuffix(log, "\n")
	if log == "" {
		return nil
	}

	var entries []Entry
	for _, line := range strings.Split(log, "\n") {
		if sender, text, ok := splitLine(line); ok {
			entries = append(entries, Entry{Sender: sender, Text: text})
			continue
		}
		// Continuation of a multi-line message.
		if n := len(entries); n > 0 {
			entries[n-1].Text += "\n" + line
		} else {
			entries = append(entries, Entry{Text: line})
		}
	}
	return entries
}

func splitLine(line string) (sender, text string, ok bool) {
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.Index(line, "]: ")
	if end < 0 {
		return "", "", false
	}
	return line[1:end], line[end+3:], true
}

// senders returns the distinct senders in order of first appearance.
func senders(entries []Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.Sender == "" || seen[e.Sender] {
			continue
		}
		seen[e.Sender] = true
		out = append(out, e.Sender)
	}
	return out
}
