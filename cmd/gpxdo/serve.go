package main

import (
	"github.com/spf13/cobra"

	"github.com/wrohdewald/gpxity/internal/api"
	"github.com/wrohdewald/gpxity/internal/config"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve ACCOUNT",
		Short: "Serve a collection over HTTP",
		Long: `Serve the given collection as a track server. Port, JWT secret and
other settings come from GPXITY_ environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer()
			if err != nil {
				return err
			}
			col, err := openCollection(args[0])
			if err != nil {
				return err
			}
			log := newLogger()
			log.Info().Str("port", cfg.Port).Str("collection", col.Identifier()).
				Msg("server starting")
			router := api.SetupRouter(cfg, col, log)
			return router.Run(cfg.Port)
		},
	}
	return cmd
}
