// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ik5/voxmix/formats/wav"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Show the format and length of a recording",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.File
		if len(args) == 1 {
			path = args[0]
		}

		info, err := wav.ReadInfo(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:     %s\n", path)
		fmt.Fprintf(out, "format:   %v\n", info.Format)
		fmt.Fprintf(out, "frames:   %d\n", info.Frames)
		fmt.Fprintf(out, "duration: %v\n", info.Duration())
		return nil
	},
}
