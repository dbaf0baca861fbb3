package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/gpxity/internal/track"
)

func newDiffCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "diff LEFT RIGHT",
		Short: "Compare two tracks or collections",
		Long: `Compare two sides. Each side is either an account, taking all of
its tracks, or a single track given as account/id.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, err := sourceFor(args[0])
			if err != nil {
				return err
			}
			right, err := sourceFor(args[1])
			if err != nil {
				return err
			}
			result, err := track.Compare(left, right, track.DiffOptions{Verbose: verbose})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range result.Identical {
				fmt.Fprintf(out, "= %s\n", t)
			}
			for _, pair := range result.Similar {
				fmt.Fprintf(out, "~ %s | %s\n", pair.Left, pair.Right)
				for _, flag := range []track.Flag{
					track.FlagTitle, track.FlagDescription, track.FlagCategory,
					track.FlagStatus, track.FlagKeywords, track.FlagPositions,
					track.FlagTimeOffset,
				} {
					for _, line := range pair.Differences[flag] {
						fmt.Fprintf(out, "  %c %s\n", flag, line)
					}
				}
			}
			for _, t := range result.LeftOnly {
				fmt.Fprintf(out, "< %s\n", t)
			}
			for _, t := range result.RightOnly {
				fmt.Fprintf(out, "> %s\n", t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every differing point")
	return cmd
}

// sourceFor turns an argument into a comparison side: an account name
// is a whole collection, account/id a single track.
func sourceFor(arg string) (track.Source, error) {
	if col, err := openCollection(arg); err == nil {
		return track.FromCollection(col), nil
	}
	if !strings.Contains(arg, "/") {
		return nil, fmt.Errorf("unknown account %q", arg)
	}
	t, err := resolveTrack(arg)
	if err != nil {
		return nil, err
	}
	return track.From(t), nil
}
