package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/gpxity/internal/track"
)

func newCpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cp SOURCE ACCOUNT",
		Short: "Copy a track or a whole collection into another collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := openCollection(args[1])
			if err != nil {
				return err
			}
			source, err := sourceFor(args[0])
			if err != nil {
				return err
			}
			tracks, err := track.Tracks(source)
			if err != nil {
				return err
			}
			for _, t := range tracks {
				copied, err := track.Add(target, t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n",
					t, track.Identifier(target, copied.ID()))
			}
			return nil
		},
	}
	return cmd
}
