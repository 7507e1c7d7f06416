package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/source"
	"github.com/RyanBlaney/sonido-tuner/transcode"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

var (
	toneFreqs     []float64
	toneNotes     []string
	toneDuration  time.Duration
	toneAmplitude float64
	toneOut       string
	toneBitDepth  int
)

func init() {
	toneCmd.Flags().Float64SliceVar(&toneFreqs, "freq", nil, "frequencies to play in order, in Hz")
	toneCmd.Flags().StringSliceVar(&toneNotes, "notes", nil, "note ids to play in order, e.g. E2,A2,D3")
	toneCmd.Flags().DurationVar(&toneDuration, "duration", 500*time.Millisecond, "duration of each tone")
	toneCmd.Flags().Float64Var(&toneAmplitude, "amplitude", 0.5, "peak amplitude in (0, 1]")
	toneCmd.Flags().StringVar(&toneOut, "out", "", "write the tones to this WAV file instead of analyzing them")
	toneCmd.Flags().IntVar(&toneBitDepth, "bit-depth", 16, "WAV bit depth for --out")
	rootCmd.AddCommand(toneCmd)
}

var toneCmd = &cobra.Command{
	Use:   "tone",
	Short: "Synthesize test tones",
	Long: `Synthesizes a sequence of sine tones and either feeds them through the tuner
or writes them to a WAV file with --out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		steps, err := toneSteps()
		if err != nil {
			return err
		}

		if toneOut != "" {
			data, err := source.Render(steps, cfg.SampleRate)
			if err != nil {
				return err
			}
			if err := transcode.WriteFile(toneOut, data, toneBitDepth); err != nil {
				return err
			}
			logging.Info("wrote tones", logging.Fields{
				"path":     toneOut,
				"tones":    len(steps),
				"duration": data.Duration.String(),
			})
			return nil
		}

		src, err := source.NewToneSource(steps, cfg.SampleRate, cfg.FrameSize, cfg.HopSize)
		if err != nil {
			return err
		}

		session, err := tuner.NewSession(cfg, src, terminalDisplay())
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		return session.Run(ctx)
	},
}

func toneSteps() ([]source.ToneStep, error) {
	freqs := append([]float64(nil), toneFreqs...)
	for _, id := range toneNotes {
		f, err := tonal.NoteNameToFreq(id)
		if err != nil {
			return nil, err
		}
		freqs = append(freqs, f)
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("at least one --freq or --notes value is required")
	}
	if toneAmplitude <= 0 || toneAmplitude > 1 {
		return nil, fmt.Errorf("amplitude must be in (0, 1], got %g", toneAmplitude)
	}

	steps := make([]source.ToneStep, len(freqs))
	for i, f := range freqs {
		steps[i] = source.ToneStep{Frequency: f, Duration: toneDuration, Amplitude: toneAmplitude}
	}
	return steps, nil
}
