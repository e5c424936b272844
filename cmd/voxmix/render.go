// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/voxmix"
	"github.com/ik5/voxmix/audio"
	"github.com/ik5/voxmix/formats/wav"
	"github.com/ik5/voxmix/track"
)

var renderCmd = &cobra.Command{
	Use:   "render <track> <out.wav>",
	Short: "Convert a background track to a WAV in the recording format",
	Long: `Decode a WAV, MP3, Ogg Vorbis or AIFF track and write the part selected
by --offset and --length as a 16-bit WAV at the configured sample rate and
channel count.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := audio.NewFormat(cfg.SampleRate, cfg.Channels)
		if err != nil {
			return err
		}

		spec := track.NewSpec(args[0])
		spec.PlayOffset, _ = cmd.Flags().GetDuration("offset")
		spec.PlayLength, _ = cmd.Flags().GetDuration("length")

		samples, err := voxmix.Render(track.DefaultRegistry(), spec, format)
		if err != nil {
			return err
		}

		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		if err := wav.Encode(out, format, samples); err != nil {
			return errors.Join(err, out.Close())
		}
		if err := out.Close(); err != nil {
			return err
		}

		d := format.DurationOf(int64(len(samples) / format.Channels))
		log.Debug("rendered track", zap.String("track", args[0]), zap.Duration("duration", d))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %v to %s\n", d, args[1])
		return nil
	},
}

func init() {
	renderCmd.Flags().Duration("offset", 0, "skip this much of the track")
	renderCmd.Flags().Duration("length", 0, "use only this much of the track")
}
