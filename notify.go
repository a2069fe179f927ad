package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const notifyMinGap = 500 * time.Millisecond

// Notifier plays a short sound when messages from other peers arrive.
type Notifier struct {
	sound  *beep.Buffer
	minGap time.Duration
	play   func(beep.Streamer)

	mu   sync.Mutex
	last time.Time
}

// NewNotifier loads an mp3 or wav file into memory and opens the speaker.
func NewNotifier(path string) (*Notifier, error) {
	sound, err := loadSound(path)
	if err != nil {
		return nil, err
	}
	sr := sound.Format().SampleRate
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to initialise speaker: %w", err)
	}
	return &Notifier{
		sound:  sound,
		minGap: notifyMinGap,
		play:   func(s beep.Streamer) { speaker.Play(s) },
	}, nil
}

func loadSound(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported sound format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	return buf, nil
}

// Notify plays the sound unless it already played within the last minGap.
// It reports whether the sound was started.
func (n *Notifier) Notify() bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	now := time.Now()
	if !n.last.IsZero() && now.Sub(n.last) < n.minGap {
		n.mu.Unlock()
		return false
	}
	n.last = now
	n.mu.Unlock()

	n.play(n.sound.Streamer(0, n.sound.Len()))
	return true
}
