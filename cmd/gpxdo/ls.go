package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrohdewald/gpxity/internal/track"
)

func newLsCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls ACCOUNT",
		Short: "List the tracks of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := openCollection(args[0])
			if err != nil {
				return err
			}
			tracks, err := col.List()
			if err != nil {
				return err
			}
			for _, t := range tracks {
				if !long {
					fmt.Fprintln(cmd.OutOrStdout(), t.ID())
					continue
				}
				line, err := describe(t)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show title, time, distance and keywords")
	return cmd
}

func describe(t *track.Track) (string, error) {
	title, err := t.Title()
	if err != nil {
		return "", err
	}
	first, err := t.FirstTime()
	if err != nil {
		return "", err
	}
	distance, err := t.Distance()
	if err != nil {
		return "", err
	}
	keywords, err := t.Keywords()
	if err != nil {
		return "", err
	}
	when := "-"
	if !first.IsZero() {
		when = first.Format(time.DateTime)
	}
	return fmt.Sprintf("%-30s %s %8.3fkm %-25q %s",
		t.ID(), when, distance, title, strings.Join(keywords, ",")), nil
}
