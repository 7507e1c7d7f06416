// Package display renders session events for people and other programs.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fatih/color"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

const needleWidth = 41

// TerminalOptions contains parameters for the terminal display
type TerminalOptions struct {
	Localized bool // Show Do/Ré/Mi labels instead of C/D/E
	NoColor   bool
	// ListeningDelay holds back the "listening" status so short gaps between
	// notes do not make the line flicker
	ListeningDelay time.Duration
}

// DefaultTerminalOptions returns the options used by the CLI
func DefaultTerminalOptions() TerminalOptions {
	return TerminalOptions{
		ListeningDelay: 250 * time.Millisecond,
	}
}

// Terminal draws a single status line with a needle and prints a banner line
// whenever the recognized chord changes.
type Terminal struct {
	w    io.Writer
	opts TerminalOptions

	inTune      *color.Color
	slightlyOff *color.Color
	farOff      *color.Color
	banner      *color.Color
	dim         *color.Color

	debounced func(func())

	mu        sync.Mutex
	lastChord string
	noMatch   bool // "not recognized" already shown
	noteSeq   uint64
}

// NewTerminal creates a terminal display writing to w
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	t := &Terminal{
		w:           w,
		opts:        opts,
		inTune:      color.New(color.FgGreen, color.Bold),
		slightlyOff: color.New(color.FgYellow),
		farOff:      color.New(color.FgRed),
		banner:      color.New(color.FgCyan, color.Bold),
		dim:         color.New(color.Faint),
	}

	if opts.NoColor {
		for _, c := range []*color.Color{t.inTune, t.slightlyOff, t.farOff, t.banner, t.dim} {
			c.DisableColor()
		}
	}

	if opts.ListeningDelay > 0 {
		t.debounced = debounce.New(opts.ListeningDelay)
	}

	return t
}

// Render implements tuner.Display
func (t *Terminal) Render(event tuner.Event) {
	switch event.Kind {
	case tuner.EventNote:
		if event.Note != nil {
			t.renderNote(event.Note)
		}
	case tuner.EventChord:
		if event.Chord != nil {
			t.renderChord(*event.Chord)
		}
	case tuner.EventListening:
		t.renderListening()
	case tuner.EventIdle:
		t.mu.Lock()
		t.noteSeq++
		t.lastChord = ""
		t.noMatch = false
		t.dim.Fprintf(t.w, "\r\033[2K%s\n", "idle")
		t.mu.Unlock()
	}
}

func (t *Terminal) renderNote(detail *tuner.NoteDetail) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.noteSeq++
	fmt.Fprint(t.w, "\r\033[2K")
	t.colorFor(detail.Tuning).Fprint(t.w, FormatNote(detail, t.opts.Localized))
}

func (t *Terminal) renderChord(result tonal.ChordMatchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch result.Status {
	case tonal.ChordTooFewSamples:
		return
	case tonal.ChordNoMatch:
		t.lastChord = ""
		if !t.noMatch {
			t.noMatch = true
			fmt.Fprint(t.w, "\n")
			t.dim.Fprintln(t.w, "chord not recognized")
		}
		return
	}

	t.noMatch = false
	if result.Name == t.lastChord {
		return
	}
	t.lastChord = result.Name
	fmt.Fprint(t.w, "\n")
	t.banner.Fprintf(t.w, "chord: %s (score %.2f)\n", result.Name, result.Score)
}

func (t *Terminal) renderListening() {
	t.mu.Lock()
	t.lastChord = ""
	seq := t.noteSeq
	t.mu.Unlock()

	draw := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// A note arrived after this status was scheduled
		if t.noteSeq != seq {
			return
		}
		t.dim.Fprint(t.w, "\r\033[2Klistening...")
	}

	if t.debounced == nil {
		draw()
		return
	}
	t.debounced(draw)
}

func (t *Terminal) colorFor(state tonal.TuningState) *color.Color {
	switch state {
	case tonal.InTune:
		return t.inTune
	case tonal.SlightlyOff:
		return t.slightlyOff
	default:
		return t.farOff
	}
}

// FormatNote renders a reading as one status line, for example
// "A4   440.00 Hz   +0 cents [-------|-------] in_tune  string 2 (A)  ±1.5"
//
// The trailing spread appears once the history holds two or more readings.
func FormatNote(detail *tuner.NoteDetail, localized bool) string {
	r := detail.Reading
	label := r.Label
	if localized {
		label = r.LocalizedLabel
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %8.2f Hz %+4d cents %s %s",
		fmt.Sprintf("%s%d", label, r.Octave), r.Frequency, r.Cents, NeedleBar(detail.Needle), detail.Tuning)

	if detail.String != nil {
		name := detail.String.String.Label
		if localized {
			name = detail.String.String.LocalizedLabel
		}
		fmt.Fprintf(&b, "  string %d (%s %+.0f)", detail.String.String.Number, name, detail.String.Cents)
	}
	if detail.Stability.Readings >= 2 {
		fmt.Fprintf(&b, "  ±%.1f", detail.Stability.SpreadCents)
	}
	return b.String()
}

// NeedleBar draws a needle position (0-100, 50 centered) as a fixed-width gauge
func NeedleBar(position float64) string {
	slots := []byte(strings.Repeat("-", needleWidth))
	slots[needleWidth/2] = '+'

	idx := int(position/100*float64(needleWidth-1) + 0.5)
	idx = max(0, min(needleWidth-1, idx))
	slots[idx] = '|'

	return "[" + string(slots) + "]"
}
