package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment
type Config struct {
	TelegramToken string
	StaffIDs      []int64

	GoogleCredentialsFile string
	SpreadsheetID         string
	SheetCopart           string
	SheetIAAI             string
	SheetManagers         string
	SheetCalculations     string

	DBPath        string
	HTTPAddr      string
	SessionKey    string
	EncryptionKey string
	StaffAPIToken string

	RedisAddr     string
	RedisPassword string

	AutoRIAAPIKey  string
	AutoRIABaseURL string
	RIAChannelID   int64

	TariffRefreshInterval time.Duration
	AdsCheckInterval      time.Duration

	LogLevel  string
	LogFormat string

	ContactPhone    string
	ContactName     string
	ContactTelegram string
}

// Load reads a .env file when present and then the environment
func Load() (Config, error) {
	// a missing .env is normal in production
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken:         os.Getenv("TELEGRAM_TOKEN"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		SpreadsheetID:         os.Getenv("SPREADSHEET_ID"),
		SheetCopart:           getEnv("SHEET_COPART", "Copart"),
		SheetIAAI:             getEnv("SHEET_IAAI", "IAAI"),
		SheetManagers:         getEnv("SHEET_MANAGERS", "Managers"),
		SheetCalculations:     getEnv("SHEET_CALCULATIONS", "Calculations"),
		DBPath:                getEnv("DB_PATH", "carbot.db"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		SessionKey:            os.Getenv("SESSION_KEY"),
		EncryptionKey:         os.Getenv("ENCRYPTION_KEY"),
		StaffAPIToken:         os.Getenv("STAFF_API_TOKEN"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		AutoRIAAPIKey:         os.Getenv("AUTORIA_API_KEY"),
		AutoRIABaseURL:        getEnv("AUTORIA_BASE_URL", "https://developers.ria.com"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		ContactPhone:          getEnv("CONTACT_PHONE", "0953362931"),
		ContactName:           getEnv("CONTACT_NAME", "Назар"),
		ContactTelegram:       getEnv("CONTACT_TELEGRAM", "@Nazar_Itrans"),
	}

	var err error
	if cfg.StaffIDs, err = parseIDs(os.Getenv("STAFF_IDS")); err != nil {
		return Config{}, fmt.Errorf("STAFF_IDS: %w", err)
	}
	if v := os.Getenv("RIA_CHANNEL_ID"); v != "" {
		if cfg.RIAChannelID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Config{}, fmt.Errorf("RIA_CHANNEL_ID: %w", err)
		}
	}
	if cfg.TariffRefreshInterval, err = getDuration("TARIFF_REFRESH_INTERVAL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.AdsCheckInterval, err = getDuration("ADS_CHECK_INTERVAL", 6*time.Hour); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsStaff reports whether a Telegram user id is in the configured staff list
func (c Config) IsStaff(id int64) bool {
	for _, s := range c.StaffIDs {
		if s == id {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
