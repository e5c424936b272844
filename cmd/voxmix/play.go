// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the recording",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRecorder()
		if err != nil {
			return err
		}
		defer r.Close()

		watch := newSessionWatch()
		r.SetObserver(watch)

		at, _ := cmd.Flags().GetDuration("at")
		if err := r.PlayAt(at); err != nil {
			return fmt.Errorf("failed to play: %w", err)
		}
		log.Info("playing, press Ctrl+C to stop",
			zap.String("path", r.FilePath()),
			zap.Duration("from", at),
			zap.Duration("total", r.PlayDuration()))

		if err := watch.wait(cmd.Context(), r.StopPlay); err != nil {
			return fmt.Errorf("failed to stop playback: %w", err)
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("playback ended: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "played %v of %v\n", r.CurrentPlayTime(), r.PlayDuration())
		return nil
	},
}

func init() {
	playCmd.Flags().Duration("at", 0, "start position")
}
