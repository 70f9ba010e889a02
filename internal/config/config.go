package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rahulpatani/smartinbox/pkg/types"
)

// Placeholder values shipped in the example .env. A setting equal to its
// placeholder is treated as unconfigured.
const (
	PlaceholderSlackURL   = "https://hooks.slack.com/services/YOUR/SLACK/WEBHOOK"
	PlaceholderWebhookURL = "https://webhook.site/YOUR-UNIQUE-URL"
	PlaceholderGeminiKey  = "your-gemini-api-key-here"
)

// Config holds the application configuration
type Config struct {
	DBPath   string
	LogLevel string
	HTTPAddr string

	// Sync settings
	LookbackDays       int
	FetchRetryAttempts int
	FetchRetryDelay    time.Duration

	// Collaborator endpoints
	ClassifierURL   string
	SlackWebhookURL string
	WebhookSiteURL  string
	GeminiAPIKey    string
	GeminiModel     string

	// Accounts seeded from the environment; more may already exist in the
	// store from the OAuth exchange flow.
	Accounts []AccountConfig
}

// AccountConfig holds configuration for a single mailbox account
type AccountConfig struct {
	Email       string
	Provider    string
	Password    string
	AccessToken string
	IMAPHost    string
	IMAPPort    int
	UseTLS      bool
}

// Account converts the config entry into the shared account record.
func (a *AccountConfig) Account() types.Account {
	return types.Account{
		Email:       a.Email,
		Provider:    a.Provider,
		Password:    a.Password,
		AccessToken: a.AccessToken,
		IMAPHost:    a.IMAPHost,
		IMAPPort:    a.IMAPPort,
		UseTLS:      a.UseTLS,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBPath:             getEnv("DB_PATH", "data/smartinbox.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":3000"),
		LookbackDays:       getEnvInt("SYNC_LOOKBACK_DAYS", 30),
		FetchRetryAttempts: getEnvInt("FETCH_RETRY_ATTEMPTS", 3),
		FetchRetryDelay:    time.Duration(getEnvInt("FETCH_RETRY_DELAY_SECONDS", 7)) * time.Second,
		ClassifierURL:      getEnv("CLASSIFIER_URL", ""),
		SlackWebhookURL:    getEnv("SLACK_WEBHOOK_URL", ""),
		WebhookSiteURL:     getEnv("WEBHOOK_SITE_URL", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
	}

	accounts, err := loadAccounts()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	cfg.Accounts = accounts

	return cfg, nil
}

// loadAccounts loads mailbox account configurations from environment variables
func loadAccounts() ([]AccountConfig, error) {
	var accounts []AccountConfig

	// Single account configuration
	if getEnv("ACCOUNT_EMAIL", "") != "" {
		account, err := loadAccountWithPrefix("ACCOUNT_")
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
		return accounts, nil
	}

	// Multiple accounts (ACCOUNT_1_*, ACCOUNT_2_*, etc.)
	accountNum := 1
	for {
		prefix := fmt.Sprintf("ACCOUNT_%d_", accountNum)
		if getEnv(prefix+"EMAIL", "") == "" {
			break
		}
		account, err := loadAccountWithPrefix(prefix)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", accountNum, err)
		}
		accounts = append(accounts, *account)
		accountNum++
	}

	return accounts, nil
}

func loadAccountWithPrefix(prefix string) (*AccountConfig, error) {
	email := getEnv(prefix+"EMAIL", "")
	if email == "" {
		return nil, fmt.Errorf("EMAIL is required")
	}

	acc := &AccountConfig{
		Email:       email,
		Provider:    getEnv(prefix+"PROVIDER", "imap"),
		Password:    getEnv(prefix+"PASSWORD", ""),
		AccessToken: getEnv(prefix+"ACCESS_TOKEN", ""),
		IMAPHost:    getEnv(prefix+"IMAP_HOST", ""),
		IMAPPort:    getEnvInt(prefix+"IMAP_PORT", 993),
		UseTLS:      getEnvBool(prefix+"IMAP_TLS", true),
	}

	if acc.IMAPHost == "" {
		return nil, fmt.Errorf("IMAP_HOST is required")
	}
	if acc.Password == "" && acc.AccessToken == "" {
		return nil, fmt.Errorf("PASSWORD or ACCESS_TOKEN is required")
	}

	return acc, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.LookbackDays < 1 {
		return fmt.Errorf("SYNC_LOOKBACK_DAYS must be at least 1")
	}
	if c.FetchRetryAttempts < 1 {
		return fmt.Errorf("FETCH_RETRY_ATTEMPTS must be at least 1")
	}

	for i := range c.Accounts {
		acc := &c.Accounts[i]
		if acc.IMAPPort < 1 || acc.IMAPPort > 65535 {
			return fmt.Errorf("account %s: invalid IMAP_PORT", acc.Email)
		}
	}

	return nil
}

// SlackConfigured reports whether a usable Slack webhook URL is set.
func (c *Config) SlackConfigured() bool {
	return c.SlackWebhookURL != "" && c.SlackWebhookURL != PlaceholderSlackURL
}

// WebhookConfigured reports whether a usable external webhook URL is set.
func (c *Config) WebhookConfigured() bool {
	return c.WebhookSiteURL != "" && c.WebhookSiteURL != PlaceholderWebhookURL
}

// GeminiConfigured reports whether draft generation is enabled.
func (c *Config) GeminiConfigured() bool {
	return c.GeminiAPIKey != "" && c.GeminiAPIKey != PlaceholderGeminiKey
}

// Lookback returns the backfill window as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
