package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/display"
	"github.com/RyanBlaney/sonido-tuner/display/httpstate"
	"github.com/RyanBlaney/sonido-tuner/source"
	"github.com/RyanBlaney/sonido-tuner/source/microphone"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

var (
	serveAddr  string
	serveFile  string
	serveQuiet bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to http_addr from the config)")
	serveCmd.Flags().StringVar(&serveFile, "file", "", "replay a WAV file instead of the microphone")
	serveCmd.Flags().BoolVar(&serveQuiet, "quiet", false, "do not draw the terminal display")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Tune and publish the state over HTTP",
	Long: `Runs the tuner and serves the latest state as JSON on /api/state, with the
chord catalog on /api/chords and the reference strings on /api/strings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}

		var src tuner.AudioSource
		if serveFile != "" {
			src, err = source.NewFileSource(serveFile, cfg.FrameSize, cfg.HopSize)
		} else {
			src, err = microphone.New(cfg.SampleRate, cfg.FrameSize, cfg.HopSize)
		}
		if err != nil {
			return err
		}

		state := httpstate.NewServer(cfg.Chords.Catalog, tonal.StandardTuning)
		displays := display.Multi{state}
		if !serveQuiet {
			displays = append(displays, terminalDisplay())
		}

		session, err := tuner.NewSession(cfg, src, displays)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- state.ListenAndServe(ctx, addr)
			cancel()
		}()

		runErr := session.Run(ctx)
		// Keep serving the final state after a file has been exhausted
		if runErr == nil && serveFile != "" {
			select {
			case <-ctx.Done():
			case err := <-serveErr:
				return err
			}
		}
		cancel()

		return errors.Join(runErr, <-serveErr)
	},
}
