package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/gpxity/internal/track"
)

func newMergeCmd() *cobra.Command {
	var opts track.MergeOptions
	cmd := &cobra.Command{
		Use:   "merge TARGET SOURCE",
		Short: "Merge one track into another",
		Long: `Merge SOURCE into TARGET, both given as account/id. Points, times,
waypoints and metadata of the source are folded into the target.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTrack(args[0])
			if err != nil {
				return err
			}
			source, err := resolveTrack(args[1])
			if err != nil {
				return err
			}
			messages, err := target.Merge(source, opts)
			if err != nil {
				return err
			}
			for _, message := range messages {
				fmt.Fprintln(cmd.OutOrStdout(), message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Remove, "remove", false, "remove the source after merging")
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "only report what would happen")
	cmd.Flags().BoolVar(&opts.Partial, "partial", false, "allow merging a partial track")
	return cmd
}
