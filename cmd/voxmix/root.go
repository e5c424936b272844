// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/voxmix/config"
	"github.com/ik5/voxmix/device"
	"github.com/ik5/voxmix/internal/logging"
	"github.com/ik5/voxmix/recorder"
	"github.com/ik5/voxmix/track"
)

var (
	cfg          *config.Config
	cfgFile      string
	filePath     string
	verboseLevel int
	log          = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "voxmix",
	Short: "Record a microphone over a background track",
	Long: `voxmix records the default input device to a 16-bit PCM WAV file,
optionally mixing a background track (wav, mp3, ogg or aiff) under it with
latency compensation, and plays recordings back.

Settings come from the --config file, VOXMIX_* environment variables and
built-in defaults, in that order of precedence after flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if filePath != "" {
			cfg.File = filePath
		}

		level := cfg.Log.Level
		if verboseLevel > 0 {
			level = logging.LevelForVerbosity(verboseLevel)
		}
		log, err = logging.New(level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "recording file (overrides config)")
	rootCmd.PersistentFlags().CountVarP(&verboseLevel, "verbose", "v", "verbose output: -v for debug")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(truncateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
}

func newSink() device.PlaybackSink {
	if cfg.Output == config.OutputNull {
		return device.NewTickerSink()
	}
	return device.NewPlayback(device.WithLogger(log), device.WithPeriodFrames(cfg.PeriodFrames))
}

// newRecorder builds the engine from the loaded configuration.
func newRecorder() (*recorder.Recorder, error) {
	r, err := recorder.New(cfg.SampleRate, cfg.File,
		recorder.WithLogger(log),
		recorder.WithChannels(cfg.Channels),
		recorder.WithBGMLatency(cfg.BGMLatency),
		recorder.WithLookahead(cfg.Lookahead),
		recorder.WithBufferFrames(cfg.BufferFrames),
		recorder.WithCapture(device.NewCapture(device.WithLogger(log), device.WithPeriodFrames(cfg.PeriodFrames))),
		recorder.WithPlayback(newSink()),
	)
	if err != nil {
		return nil, err
	}
	r.SetMaxRecordTime(cfg.MaxRecordTime)

	if bg := cfg.Background; bg.Path != "" {
		spec := track.Spec{
			Path:       bg.Path,
			Volume:     float32(bg.Volume),
			PlayOffset: bg.Offset,
			PlayLength: bg.Length,
		}
		if err := r.SetBackgroundTrack(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}
