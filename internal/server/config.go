// Package server provides configuration helpers that define runtime defaults,
// validation, and environment loading for the relaychat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/Tyrowin/relaychat/internal/chat"
)

const (
	defaultPort           = ":3000"
	defaultMaxMessageSize = 4096
	defaultFrontendURL    = "http://localhost:3000"
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	// BcryptCost is the work factor for room password hashes.
	BcryptCost int
	// FrontendURL prefixes the shareable link returned for new rooms.
	FrontendURL string
	// ConcealRoomExistence answers unknown rooms and wrong passwords with
	// the same message.
	ConcealRoomExistence bool
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port:           defaultPort,
		AllowedOrigins: []string{"*"},
		MaxMessageSize: defaultMaxMessageSize,
		BcryptCost:     chat.DefaultBcryptCost,
		FrontendURL:    defaultFrontendURL,
	}
}

func sanitizeConfig(cfg Config) Config {
	cfg.Port = normalizePort(cfg.Port)

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = chat.DefaultBcryptCost
	}

	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = defaultFrontendURL
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		sanitizeConfig(defaultConfig())
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = normalizePort(port)
	}

	// SOCKET_ORIGIN accepts a comma separated list; "*" allows any origin.
	if origins := os.Getenv("SOCKET_ORIGIN"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if cost := os.Getenv("BCRYPT_COST"); cost != "" {
		cfg.BcryptCost = parseIntValue(cost, cfg.BcryptCost)
	}

	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		cfg.FrontendURL = frontend
	}

	if conceal := os.Getenv("CONCEAL_ROOM_EXISTENCE"); conceal != "" {
		cfg.ConcealRoomExistence = parseBoolValue(conceal, cfg.ConcealRoomExistence)
	}

	return &cfg
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return defaultPort
	}
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return defaultValue
}
