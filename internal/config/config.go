package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-authgate/authcascade/internal/core"

	"github.com/joho/godotenv"
)

// Driver name constants
const (
	DriverLocal      = "local"
	DriverRedis      = "redis"
	DriverHTTPAPI    = "http_api"
	DriverRemoteUser = "remote_user"
)

// KnownDrivers lists every driver name AUTH_DRIVERS may contain
var KnownDrivers = []string{DriverLocal, DriverRedis, DriverHTTPAPI, DriverRemoteUser}

// HTTP API authentication modes, as understood by go-httpclient
const (
	HTTPAPIAuthModeNone   = "none"
	HTTPAPIAuthModeSimple = "simple"
	HTTPAPIAuthModeHMAC   = "hmac"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// CapabilityEnvPrefix prefixes the per-capability routing overrides,
// e.g. AUTH_CAPABILITY_RESETPASSWORD=local,redis
const CapabilityEnvPrefix = "AUTH_CAPABILITY_"

type Config struct {
	// Server settings
	ServerAddr            string
	ServerShutdownTimeout time.Duration
	AdminToken            string // Bearer token for user management routes; empty disables the check
	MetricsEnabled        bool
	MetricsToken          string // Bearer token for /metrics; empty leaves it open

	// Registered-user gauge refresh
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Login rate limiting
	RateLimitEnabled  bool
	LoginRateLimit    int    // Login attempts per minute per client IP
	RateLimitStore    string // "memory" or "redis"
	RateLimitRedisURL string // Redis address for the shared limiter store

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // "json" or "console"

	// Cascade
	Drivers      []string                     // Ordered driver list (precedence order)
	Capabilities map[core.Capability][]string // Routing overrides; nil when none set

	// Password reset
	PasswordLength int

	// Database (local driver)
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)
	BcryptCost     int

	// Redis driver
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisKeyPrefix   string
	RedisConnTimeout time.Duration

	// HTTP API driver
	HTTPAPIURL                string
	HTTPAPITimeout            time.Duration
	HTTPAPIInsecureSkipVerify bool
	HTTPAPIAuthMode           string // "none", "simple" or "hmac"
	HTTPAPIAuthSecret         string // Shared secret for simple and hmac modes
	HTTPAPIAuthHeader         string // Header carrying the secret in simple mode (default: "X-API-Secret")
	HTTPAPIMaxRetries         int    // Maximum retry attempts (default: 3)
	HTTPAPIRetryDelay         time.Duration
	HTTPAPIMaxRetryDelay      time.Duration

	// Remote user driver
	RemoteUserHeader string
	TrustedProxies   []string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "authcascade.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:            getEnv("SERVER_ADDR", ":8080"),
		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		AdminToken:            getEnv("ADMIN_TOKEN", ""),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		MetricsToken:          getEnv("METRICS_TOKEN", ""),

		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),

		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),
		RateLimitStore:    getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitRedisURL: getEnv("RATE_LIMIT_REDIS_ADDR", getEnv("REDIS_ADDR", "localhost:6379")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", LogFormatJSON),

		Drivers:      getEnvSlice("AUTH_DRIVERS", []string{DriverLocal}),
		Capabilities: loadCapabilityOverrides(),

		PasswordLength: getEnvInt("PASSWORD_LENGTH", 16),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,
		BcryptCost:     getEnvInt("BCRYPT_COST", 10),

		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:   getEnv("REDIS_KEY_PREFIX", "authcascade:"),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		HTTPAPIURL:                getEnv("HTTP_API_URL", ""),
		HTTPAPITimeout:            getEnvDuration("HTTP_API_TIMEOUT", 10*time.Second),
		HTTPAPIInsecureSkipVerify: getEnvBool("HTTP_API_INSECURE_SKIP_VERIFY", false),
		HTTPAPIAuthMode:           getEnv("HTTP_API_AUTH_MODE", HTTPAPIAuthModeNone),
		HTTPAPIAuthSecret:         getEnv("HTTP_API_AUTH_SECRET", ""),
		HTTPAPIAuthHeader:         getEnv("HTTP_API_AUTH_HEADER", "X-API-Secret"),
		HTTPAPIMaxRetries:         getEnvInt("HTTP_API_MAX_RETRIES", 3),
		HTTPAPIRetryDelay:         getEnvDuration("HTTP_API_RETRY_DELAY", 1*time.Second),
		HTTPAPIMaxRetryDelay:      getEnvDuration("HTTP_API_MAX_RETRY_DELAY", 10*time.Second),

		RemoteUserHeader: getEnv("REMOTE_USER_HEADER", "X-Remote-User"),
		TrustedProxies:   getEnvSlice("TRUSTED_PROXIES", []string{"127.0.0.1", "::1"}),
	}
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if len(c.Drivers) == 0 {
		return fmt.Errorf("AUTH_DRIVERS must list at least one driver")
	}

	seen := make(map[string]bool, len(c.Drivers))
	for _, d := range c.Drivers {
		if !slices.Contains(KnownDrivers, d) {
			return fmt.Errorf(
				"invalid AUTH_DRIVERS entry: %q (must be one of: %s)",
				d,
				strings.Join(KnownDrivers, ", "),
			)
		}
		if seen[d] {
			return fmt.Errorf("duplicate AUTH_DRIVERS entry: %q", d)
		}
		seen[d] = true
	}

	if seen[DriverHTTPAPI] && c.HTTPAPIURL == "" {
		return fmt.Errorf("HTTP_API_URL is required when the %s driver is enabled", DriverHTTPAPI)
	}
	if seen[DriverHTTPAPI] {
		switch c.HTTPAPIAuthMode {
		case HTTPAPIAuthModeNone:
		case HTTPAPIAuthModeSimple, HTTPAPIAuthModeHMAC:
			if c.HTTPAPIAuthSecret == "" {
				return fmt.Errorf(
					"HTTP_API_AUTH_SECRET is required when HTTP_API_AUTH_MODE is %q",
					c.HTTPAPIAuthMode,
				)
			}
		default:
			return fmt.Errorf(
				"invalid HTTP_API_AUTH_MODE value: %q (must be %q, %q or %q)",
				c.HTTPAPIAuthMode,
				HTTPAPIAuthModeNone,
				HTTPAPIAuthModeSimple,
				HTTPAPIAuthModeHMAC,
			)
		}
	}
	if seen[DriverRemoteUser] && c.RemoteUserHeader == "" {
		return fmt.Errorf("REMOTE_USER_HEADER is required when the %s driver is enabled", DriverRemoteUser)
	}

	if c.PasswordLength <= 0 {
		return fmt.Errorf("PASSWORD_LENGTH must be positive, got %d", c.PasswordLength)
	}

	if c.MetricsEnabled && c.MetricsGaugeUpdateEnabled && c.MetricsGaugeUpdateInterval <= 0 {
		return fmt.Errorf("METRICS_GAUGE_UPDATE_INTERVAL must be positive")
	}

	if c.RateLimitEnabled {
		if c.LoginRateLimit <= 0 {
			return fmt.Errorf("LOGIN_RATE_LIMIT must be positive, got %d", c.LoginRateLimit)
		}
		if c.RateLimitStore != RateLimitStoreMemory && c.RateLimitStore != RateLimitStoreRedis {
			return fmt.Errorf(
				"invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
				c.RateLimitStore,
				RateLimitStoreMemory,
				RateLimitStoreRedis,
			)
		}
	}

	if c.LogFormat != LogFormatJSON && c.LogFormat != LogFormatConsole {
		return fmt.Errorf(
			"invalid LOG_FORMAT value: %q (must be %q or %q)",
			c.LogFormat,
			LogFormatJSON,
			LogFormatConsole,
		)
	}

	return nil
}

// loadCapabilityOverrides reads AUTH_CAPABILITY_<NAME> for every known
// capability. A variable that is set but empty disables the capability.
func loadCapabilityOverrides() map[core.Capability][]string {
	var overrides map[core.Capability][]string
	for _, c := range core.Capabilities {
		value, ok := os.LookupEnv(CapabilityEnvPrefix + strings.ToUpper(string(c)))
		if !ok {
			continue
		}
		if overrides == nil {
			overrides = make(map[core.Capability][]string)
		}
		ids := splitAndTrim(value, ",")
		if ids == nil {
			ids = []string{}
		}
		overrides[c] = ids
	}
	return overrides
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitAndTrim(value, ","); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
