package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/source/microphone"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

func init() {
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Tune from the default microphone",
	Long:  `Captures the default input device and shows the detected note until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mic, err := microphone.New(cfg.SampleRate, cfg.FrameSize, cfg.HopSize)
		if err != nil {
			return err
		}

		session, err := tuner.NewSession(cfg, mic, terminalDisplay())
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		if err := session.Run(ctx); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	},
}
