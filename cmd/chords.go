package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
)

func init() {
	rootCmd.AddCommand(chordsCmd)
}

var chordsCmd = &cobra.Command{
	Use:   "chords",
	Short: "List the chord catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		for _, fp := range cfg.Chords.Catalog {
			parts := make([]string, 0, len(fp.Notes))
			for _, id := range fp.Notes {
				freq, err := tonal.NoteNameToFreq(id)
				if err != nil {
					return err
				}
				parts = append(parts, fmt.Sprintf("%s %.2f Hz", id, freq))
			}
			fmt.Fprintf(os.Stdout, "%-4s ±%.0f cents  %s\n", fp.Name, fp.Tolerance, strings.Join(parts, ", "))
		}
		return nil
	},
}
