package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <recording>",
		Short: "Convert a recording to MP4 without publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recording, err := readRecording(args[0])
			if err != nil {
				return err
			}

			renderer := newStatusRenderer()
			machine, cleanup, err := ctx.buildMachine(renderer.observe)
			if err != nil {
				return err
			}
			defer cleanup()

			path, err := machine.RequestConvert(cmd.Context(), args[0], recording)
			renderer.finishBar()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s (%s) -> %s\n",
				args[0], humanize.Bytes(uint64(recording.Size())), path)
			return nil
		},
	}
}
