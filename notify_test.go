package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

func TestLoadSoundWAV(t *testing.T) {
	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	path := filepath.Join(t.TempDir(), "chime.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Encode(f, beep.Take(1000, beep.Silence(-1)), format); err != nil {
		t.Fatal(err)
	}
	f.Close()

	buf, err := loadSound(path)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 1000 {
		t.Fatalf("loaded %d samples, want 1000", buf.Len())
	}
	if buf.Format().SampleRate != format.SampleRate {
		t.Fatalf("sample rate %d", buf.Format().SampleRate)
	}
}

func TestLoadSoundRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chime.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSound(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotifyRateLimit(t *testing.T) {
	buf := beep.NewBuffer(beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 1})
	buf.Append(beep.Take(10, beep.Silence(-1)))

	plays := 0
	n := &Notifier{
		sound:  buf,
		minGap: 50 * time.Millisecond,
		play:   func(beep.Streamer) { plays++ },
	}

	if !n.Notify() {
		t.Fatal("first notify suppressed")
	}
	if n.Notify() {
		t.Fatal("second notify within gap played")
	}
	time.Sleep(60 * time.Millisecond)
	if !n.Notify() {
		t.Fatal("notify after gap suppressed")
	}
	if plays != 2 {
		t.Fatalf("played %d times, want 2", plays)
	}

	var none *Notifier
	if none.Notify() {
		t.Fatal("nil notifier played")
	}
}
