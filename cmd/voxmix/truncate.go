// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var truncateCmd = &cobra.Command{
	Use:   "truncate <time>",
	Short: "Drop everything after a time from the recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", args[0], err)
		}

		r, err := newRecorder()
		if err != nil {
			return err
		}
		if err := r.TruncateFile(at); err != nil {
			return fmt.Errorf("failed to truncate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %v long\n", r.FilePath(), r.RecordDuration())
		return nil
	},
}
