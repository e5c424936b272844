// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the default input device",
	Long: `Record from the default input device until interrupted or until the
configured maximum record time is reached. With --at, the existing file is
kept up to that time and recording continues after it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRecordFlags(cmd)

		r, err := newRecorder()
		if err != nil {
			return err
		}
		defer r.Close()

		watch := newSessionWatch()
		r.SetObserver(watch)

		if cmd.Flags().Changed("at") {
			at, _ := cmd.Flags().GetDuration("at")
			err = r.StartRecordAt(at)
		} else {
			err = r.StartRecord()
		}
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		log.Info("recording, press Ctrl+C to stop",
			zap.String("path", r.FilePath()),
			zap.Stringer("format", r.Format()),
			zap.Bool("noise_reduction", r.NoiseReductionEnabled()),
			zap.Bool("headphones", r.RecordWithHeadphone()))

		if err := watch.wait(cmd.Context(), r.StopRecord); err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("recording ended: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "recorded %v to %s\n", r.RecordDuration(), r.FilePath())
		return nil
	},
}

func applyRecordFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("max") {
		cfg.MaxRecordTime, _ = flags.GetDuration("max")
	}
	if flags.Changed("bgm") {
		cfg.Background.Path, _ = flags.GetString("bgm")
	}
	if flags.Changed("volume") {
		cfg.Background.Volume, _ = flags.GetFloat64("volume")
	}
	if flags.Changed("offset") {
		cfg.Background.Offset, _ = flags.GetDuration("offset")
	}
	if flags.Changed("length") {
		cfg.Background.Length, _ = flags.GetDuration("length")
	}
	if flags.Changed("latency") {
		cfg.BGMLatency, _ = flags.GetDuration("latency")
	}
}

func init() {
	recordCmd.Flags().Duration("at", 0, "keep the file up to this time and record after it")
	recordCmd.Flags().Duration("max", 0, "maximum file length (overrides config)")
	recordCmd.Flags().String("bgm", "", "background track (overrides config)")
	recordCmd.Flags().Float64("volume", 0, "background volume in [0,1] (overrides config)")
	recordCmd.Flags().Duration("offset", 0, "skip this much of the background track")
	recordCmd.Flags().Duration("length", 0, "use only this much of the background track")
	recordCmd.Flags().Duration("latency", 0, "background track delay (overrides config)")
}
