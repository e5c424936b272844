// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ik5/voxmix/device"
	"github.com/ik5/voxmix/recorder"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, kind := range []device.Kind{device.Input, device.Output} {
			devs, err := device.List(kind, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s devices:\n", kind)
			for _, d := range devs {
				mark := " "
				if d.Default {
					mark = "*"
				}
				fmt.Fprintf(out, " %s %s\n", mark, d.Name)
			}
		}
		fmt.Fprintf(out, "headphones: %t\n", recorder.DetectingHeadphones())
		return nil
	},
}
