package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/display"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

func init() {
	rootCmd.AddCommand(noteCmd)
}

var noteCmd = &cobra.Command{
	Use:   "note <hz>",
	Short: "Map a frequency to a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		freq, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid frequency %q: %w", args[0], err)
		}

		reading, ok := tonal.ToNote(freq)
		if !ok {
			return fmt.Errorf("%g Hz is below the mappable range", freq)
		}

		detail := &tuner.NoteDetail{
			Reading: reading,
			Tuning:  cfg.Tuning.Classify(reading.Cents),
			Needle:  tonal.NeedlePosition(reading.Cents),
		}
		if match, ok := tonal.NearestString(freq, tonal.StandardTuning); ok {
			detail.String = &match
		}

		fmt.Fprintln(os.Stdout, display.FormatNote(detail, localized))
		return nil
	},
}
