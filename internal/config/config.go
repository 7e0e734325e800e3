package config

import (
	"os"
	"strconv"
	"time"
)

// JournalDisabled turns off the run journal when used as DATABASE_URL.
const JournalDisabled = "off"

type Config struct {
	XsollaAPIKey     string
	XsollaProjectID  int
	XsollaMerchantID int
	XsollaBaseURL    string
	SteamStoreURL    string
	SteamWebAPIURL   string
	SteamLocale      string
	SteamFloodDelay  time.Duration
	HTTPTimeout      time.Duration
	DatabaseURL      string
	SettingsFile     string
	LogLevel         string
	LogFormat        string
	Port             string
	JWTSecret        string
	ScheduleSpec     string
	ScheduleJobs     string
}

func Load() *Config {
	return &Config{
		XsollaAPIKey:     getEnv("XSOLLA_API_KEY", ""),
		XsollaProjectID:  getEnvAsInt("XSOLLA_PROJECT_ID", 0),
		XsollaMerchantID: getEnvAsInt("XSOLLA_MERCHANT_ID", 0),
		XsollaBaseURL:    getEnv("XSOLLA_BASE_URL", "https://store.xsolla.com/api"),
		SteamStoreURL:    getEnv("STEAM_STORE_URL", "https://store.steampowered.com"),
		SteamWebAPIURL:   getEnv("STEAM_WEBAPI_URL", "https://api.steampowered.com"),
		SteamLocale:      getEnv("STEAM_LOCALE", "en"),
		SteamFloodDelay:  getEnvAsMillis("STEAM_FLOOD_DELAY_MS", 1500),
		HTTPTimeout:      time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		DatabaseURL:      getEnv("DATABASE_URL", "xsolla_tools.db"),
		SettingsFile:     getEnv("SETTINGS_FILE", "xsolla_tools.ini"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		ScheduleSpec:     getEnv("SCHEDULE_SPEC", "@every 6h"),
		ScheduleJobs:     getEnv("SCHEDULE_JOBS", ""),
	}
}

// JournalEnabled reports whether task runs should be recorded.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != JournalDisabled
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsMillis(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMillis)) * time.Millisecond
}
