package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tuner/display"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/tuner/config"
)

var (
	configPath string
	logLevel   string
	noColor    bool
	localized  bool
)

var rootCmd = &cobra.Command{
	Use:   "sonido-tuner",
	Short: "Real-time instrument tuner",
	Long: `Real-time instrument tuner.

Listens to an audio source, reports the nearest note with its deviation in cents,
and recognizes simple chord shapes from the last three notes played.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
			logging.DisableColors()
		}

		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&localized, "solfege", false, "label notes Do, Ré, Mi instead of C, D, E")
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// A level in the file applies unless the flag was set explicitly
	if !rootCmd.PersistentFlags().Changed("log-level") && cfg.LogLevel != "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logging.SetLevel(level)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func terminalDisplay() *display.Terminal {
	opts := display.DefaultTerminalOptions()
	opts.NoColor = noColor
	opts.Localized = localized
	return display.NewTerminal(os.Stdout, opts)
}
