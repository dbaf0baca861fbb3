// Command gpxdo works with GPS track collections: listing, comparing,
// merging and copying tracks between directories, databases and track
// servers.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wrohdewald/gpxity/internal/collection"
	"github.com/wrohdewald/gpxity/internal/config"
	"github.com/wrohdewald/gpxity/internal/track"
)

var accountsPath string

func main() {
	collection.RegisterBuiltins()

	root := &cobra.Command{
		Use:           "gpxdo",
		Short:         "Work with GPS track collections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&accountsPath, "accounts",
		config.DefaultAccountsPath(), "accounts file")

	root.AddCommand(
		newLsCmd(),
		newDiffCmd(),
		newMergeCmd(),
		newCpCmd(),
		newRmCmd(),
		newServeCmd(),
		newTokenCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// openCollection resolves an account reference into a collection.
func openCollection(name string) (track.Collection, error) {
	accounts, err := config.LoadAccounts(accountsPath)
	if err != nil {
		return nil, err
	}
	account, err := accounts.Lookup(name)
	if err != nil {
		return nil, err
	}
	return collection.Open(account)
}

// resolveTrack resolves "account/ident" into a lazy track. A reference
// without identity is an error here; use openCollection for those.
func resolveTrack(ref string) (*track.Track, error) {
	slash := strings.LastIndex(ref, "/")
	if slash < 0 {
		return nil, fmt.Errorf("track reference %q needs the form account/id", ref)
	}
	col, err := openCollection(ref[:slash])
	if err != nil {
		return nil, err
	}
	t := track.New()
	err = t.Decoupled(func() error {
		t.SetCollection(col)
		return t.SetID(ref[slash+1:])
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
