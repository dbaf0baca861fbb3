package main

import (
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm TRACK...",
		Short: "Remove tracks, given as account/id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ref := range args {
				t, err := resolveTrack(ref)
				if err != nil {
					return err
				}
				if err := t.Remove(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
