package ratelimit

import (
	"strconv"

	"github.com/toxikkmodding/toxikk-launcher/config"
)

// ConfigFromSection creates a rate limiter manager from the [ServerLauncher] section:
//   - ApiRateLimit: global rate limit for API requests (requests/sec)
//   - ApiPerUserRateLimit: per-user rate limit for API requests (requests/sec)
//   - DownloadRateLimit: combined zip download throughput (KiB/sec)
//
// A value of 0 or unset means unlimited for that limit type.
func ConfigFromSection(sec *config.Section) *Manager {
	apiGlobal := getFloatParam(sec, "ApiRateLimit", 0)
	apiPerUser := getFloatParam(sec, "ApiPerUserRateLimit", 0)
	download := getFloatParam(sec, "DownloadRateLimit", 0) * 1024

	return NewManager(apiGlobal, apiPerUser, download)
}

// getFloatParam retrieves a float configuration parameter
// Returns defaultValue if the parameter is not set or cannot be parsed
func getFloatParam(sec *config.Section, key string, defaultValue float64) float64 {
	if sec == nil {
		return defaultValue
	}

	value, ok := sec.Lookup(key)
	if !ok {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	// Negative values are treated as unlimited (0)
	if floatValue < 0 {
		return 0
	}

	return floatValue
}
