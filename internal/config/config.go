package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Delivery estimate
	DeliveryTimezone    string
	CutoffTime          string
	EnableHolidays      bool
	HolidaysFile        string
	PostcodeDatasetURL  string
	PostcodeDatasetFile string
	SuggestionLimit     int

	// Geolocation providers (best-effort)
	IPGeolocationURL    string
	ReverseGeocodeURL   string
	IPLookupTimeout     time.Duration
	DeviceLookupTimeout time.Duration
	SessionTTL          time.Duration

	// Announcement countdown
	CountdownTarget string

	// Storefront cart API
	StorefrontBaseURL    string
	StorefrontTimeout    time.Duration
	EngravingFeeOneLine  int64
	EngravingFeeTwoLines int64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DeliveryTimezone:    getEnv("DELIVERY_TIMEZONE", "Australia/Brisbane"),
		CutoffTime:          getEnv("CUTOFF_TIME", "12:00"),
		EnableHolidays:      getEnvAsBool("ENABLE_HOLIDAYS", true),
		HolidaysFile:        getEnv("HOLIDAYS_FILE", ""),
		PostcodeDatasetURL:  getEnv("POSTCODE_DATASET_URL", ""),
		PostcodeDatasetFile: getEnv("POSTCODE_DATASET_FILE", ""),
		SuggestionLimit:     getEnvAsInt("SUGGESTION_LIMIT", 10),

		IPGeolocationURL:    getEnv("IP_GEOLOCATION_URL", "https://ipapi.co"),
		ReverseGeocodeURL:   getEnv("REVERSE_GEOCODE_URL", "https://api.bigdatacloud.net/data/reverse-geocode-client"),
		IPLookupTimeout:     getEnvAsDuration("IP_LOOKUP_TIMEOUT", 3*time.Second),
		DeviceLookupTimeout: getEnvAsDuration("DEVICE_LOOKUP_TIMEOUT", 10*time.Second),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 12*time.Hour),

		CountdownTarget: getEnv("COUNTDOWN_TARGET", "12:00"),

		StorefrontBaseURL:    strings.TrimRight(getEnv("STOREFRONT_BASE_URL", ""), "/"),
		StorefrontTimeout:    getEnvAsDuration("STOREFRONT_TIMEOUT", 10*time.Second),
		EngravingFeeOneLine:  getEnvAsInt64("ENGRAVING_FEE_ONE_LINE_VARIANT", 43781283217459),
		EngravingFeeTwoLines: getEnvAsInt64("ENGRAVING_FEE_TWO_LINES_VARIANT", 43781283250227),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
