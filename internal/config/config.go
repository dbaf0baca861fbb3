package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Server holds the settings of the track server, taken from the
// environment with the GPXITY_ prefix.
type Server struct {
	Port      string `envconfig:"PORT" default:":8080"`
	JWTSecret string `envconfig:"JWT_SECRET"`
	// AuthDisabled turns off the bearer token check, for local use only.
	AuthDisabled bool `envconfig:"AUTH_DISABLED" default:"false"`
}

// LoadServer reads the server settings from the environment.
func LoadServer() (*Server, error) {
	var result Server
	if err := envconfig.Process("gpxity", &result); err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	if !result.AuthDisabled && result.JWTSecret == "" {
		return nil, fmt.Errorf("GPXITY_JWT_SECRET is required unless GPXITY_AUTH_DISABLED is set")
	}
	return &result, nil
}
