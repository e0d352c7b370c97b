/*

This file contains the defaults used when an environment variable is not set.

*/

package config

import "time"

const (
	DefaultLogLevel = "info"
	DefaultWebPort  = "8080"

	DefaultSubgraphRPS     = 5.0
	DefaultSubgraphTimeout = 30 * time.Second

	// Reserves move every block; a short TTL keeps quotes close to chain state.
	DefaultReserveCacheTTL  = 15 * time.Second
	DefaultReserveCacheSize = 256

	// 90 days of hourly snapshots for the performance index.
	DefaultSnapshotLookback = 90 * 24 * time.Hour
	// Volume and spread profit are reported over the trailing 24 hours.
	DefaultMetricsLookback = 24 * time.Hour

	DefaultRefreshInterval = 5 * time.Minute
)
