package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the rate limit for one route.
type EndpointConfig struct {
	Path   string        // Exact path, or a prefix when it ends in "/"
	Method string        // HTTP method
	Limit  int           // Requests per window; 0 means unlimited
	Window time.Duration // Refill window
	Burst  int           // Bucket capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // Buckets unused for this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	runLimit := getEnvInt("RATE_LIMIT_RUN_LIMIT", 10)
	runWindow := getEnvDuration("RATE_LIMIT_RUN_WINDOW", time.Hour)

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         time.Hour,
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(runLimit, runWindow),
	}
}

// DefaultEndpointConfigs returns the per-route limits. Every run costs four model
// calls, so run endpoints share the strictest tier.
func DefaultEndpointConfigs(runLimit int, runWindow time.Duration) []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: model calls
		{Path: "/run", Method: "POST", Limit: runLimit, Window: runWindow, Burst: 2},
		{Path: "/run/stream", Method: "POST", Limit: runLimit, Window: runWindow, Burst: 2},
		{Path: "/connection/test", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Tier 2: writes and uploads
		{Path: "/profile/", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/profile", Method: "PUT", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/export", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},

		// Reads use the default limit; health and metrics are unlimited.
	}
}

// MatchEndpoint returns the configuration for a request, or nil to use the default.
// Exact paths win over prefixes.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && (path == "/health" || path == "/metrics") {
		return &EndpointConfig{Path: path, Method: method}
	}

	for i := range configs {
		if configs[i].Method == method && configs[i].Path == path {
			return &configs[i]
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
