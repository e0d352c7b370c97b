package config

import (
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// EndpointConfig holds the indexer endpoint and how hard we may call it.
type EndpointConfig struct {
	// SubgraphURL is the GraphQL endpoint of the vault indexer.
	SubgraphURL string
	// SubgraphAPIKey is sent as a bearer token when set.
	SubgraphAPIKey string
	// SubgraphRPS is the sustained request rate allowed against the indexer.
	SubgraphRPS float64
	// SubgraphTimeout bounds a single HTTP request.
	SubgraphTimeout time.Duration
}

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() (EndpointConfig, error) {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var (
		ep  EndpointConfig
		err error
	)

	if ep.SubgraphURL, err = getEnv("SUBGRAPH_URL"); err != nil {
		return ep, err
	}
	if u, err := url.Parse(ep.SubgraphURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ep, errors.New("environment variable SUBGRAPH_URL must be an absolute URL, got: " + ep.SubgraphURL)
	}

	ep.SubgraphAPIKey = getEnvOrDefault("SUBGRAPH_API_KEY", "")

	if ep.SubgraphRPS, err = getEnvAsFloat64OrDefault("SUBGRAPH_RPS", DefaultSubgraphRPS); err != nil {
		return ep, err
	}
	if ep.SubgraphRPS <= 0 {
		return ep, errors.New("environment variable SUBGRAPH_RPS must be positive")
	}

	if ep.SubgraphTimeout, err = getEnvAsDurationOrDefault("SUBGRAPH_TIMEOUT", DefaultSubgraphTimeout); err != nil {
		return ep, err
	}

	log.Debug().
		Str("SubgraphURL", ep.SubgraphURL).
		Float64("SubgraphRPS", ep.SubgraphRPS).
		Dur("SubgraphTimeout", ep.SubgraphTimeout).
		Msg("Endpoint configuration loaded successfully.")

	return ep, nil
}
