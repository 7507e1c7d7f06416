package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/display"
	"github.com/RyanBlaney/sonido-tuner/source"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

var realtime bool

func init() {
	fileCmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames at the configured tick interval")
	rootCmd.AddCommand(fileCmd)
}

var fileCmd = &cobra.Command{
	Use:   "file <path.wav>",
	Short: "Analyze a WAV file",
	Long: `Runs the detection loop over a WAV file and prints a summary of the notes
and chords found. With --realtime the file is played back at capture speed and
the live display is shown instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		src, err := source.NewFileSource(args[0], cfg.FrameSize, cfg.HopSize)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		if realtime {
			session, err := tuner.NewSession(cfg, src, terminalDisplay())
			if err != nil {
				return err
			}
			return session.Run(ctx)
		}

		recorder := display.NewRecorder()
		session, err := tuner.NewSession(cfg, src, recorder)
		if err != nil {
			return err
		}
		if err := drain(ctx, session); err != nil {
			return err
		}

		printSummary(recorder)
		return nil
	},
}

// drain ticks the session as fast as the source allows
func drain(ctx context.Context, session *tuner.Session) error {
	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	for ctx.Err() == nil {
		if err := session.Tick(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
	return nil
}

func printSummary(recorder *display.Recorder) {
	notes := make(map[string]int)
	chords := make(map[string]int)
	var order []string

	for _, e := range recorder.Events() {
		switch {
		case e.Kind == tuner.EventNote && e.Note != nil:
			id := e.Note.Reading.ID()
			if localized {
				id = fmt.Sprintf("%s%d", e.Note.Reading.LocalizedLabel, e.Note.Reading.Octave)
			}
			if notes[id] == 0 {
				order = append(order, id)
			}
			notes[id]++
		case e.Kind == tuner.EventChord && e.Chord != nil && e.Chord.Matched():
			chords[e.Chord.Name]++
		}
	}

	fmt.Fprintf(os.Stdout, "notes (%d distinct):\n", len(order))
	for _, id := range order {
		fmt.Fprintf(os.Stdout, "  %-6s %d frames\n", id, notes[id])
	}

	names := make([]string, 0, len(chords))
	for name := range chords {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(os.Stdout, "chords (%d distinct):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(os.Stdout, "  %-6s %d frames\n", name, chords[name])
	}
}
