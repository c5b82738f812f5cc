// Package config loads ledger-sync settings from the environment.
// A .env file in the working directory is honoured when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned by Validate when required settings are absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Config represents the application configuration.
type Config struct {
	Plaid     PlaidConfig
	Sheets    SheetsConfig
	Archive   ArchiveConfig
	Changelog ChangelogConfig
	LogLevel  string
}

// PlaidConfig holds aggregator credentials.
type PlaidConfig struct {
	ClientID     string
	Secret       string
	Environment  string
	AccessTokens []string
}

// SheetsConfig identifies the destination spreadsheet.
type SheetsConfig struct {
	SpreadsheetKey        string
	CredentialsFile       string
	TransactionsWorksheet string
	MetaWorksheet         string
}

// ArchiveConfig enables run reports in Cloud Storage when Bucket is set.
type ArchiveConfig struct {
	Bucket string
}

// ChangelogConfig enables the BigQuery change log when all fields are set.
type ChangelogConfig struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// Enabled reports whether a change log table is configured.
func (c ChangelogConfig) Enabled() bool {
	return c.ProjectID != "" && c.DatasetID != "" && c.TableID != ""
}

// Load reads configuration from the process environment after loading .env
// (or the file named by envPath) if it exists.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("config.Load: loading %s: %w", envPath[0], err)
		}
	} else {
		// a missing .env is fine, the environment may already be populated
		_ = godotenv.Load()
	}

	return &Config{
		Plaid: PlaidConfig{
			ClientID:     os.Getenv("PLAID_CLIENT_ID"),
			Secret:       os.Getenv("PLAID_SECRET"),
			Environment:  strings.ToLower(getEnvOrDefault("PLAID_ENV", "production")),
			AccessTokens: splitList(os.Getenv("PLAID_ACCESS_TOKENS")),
		},
		Sheets: SheetsConfig{
			SpreadsheetKey:        os.Getenv("GOOGLE_SHEETS_KEY"),
			CredentialsFile:       getEnvOrDefault("GOOGLE_SHEETS_CREDENTIALS", "google_sheets_credentials.json"),
			TransactionsWorksheet: getEnvOrDefault("TRANSACTIONS_WORKSHEET", "transactions"),
			MetaWorksheet:         getEnvOrDefault("META_WORKSHEET", "_meta"),
		},
		Archive: ArchiveConfig{
			Bucket: os.Getenv("ARCHIVE_BUCKET"),
		},
		Changelog: ChangelogConfig{
			ProjectID: os.Getenv("CHANGELOG_PROJECT"),
			DatasetID: os.Getenv("CHANGELOG_DATASET"),
			TableID:   os.Getenv("CHANGELOG_TABLE"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// Validate checks that everything needed for a run is present.
func (c *Config) Validate() error {
	var missing []string

	if c.Plaid.ClientID == "" {
		missing = append(missing, "PLAID_CLIENT_ID")
	}
	if c.Plaid.Secret == "" {
		missing = append(missing, "PLAID_SECRET")
	}
	if len(c.Plaid.AccessTokens) == 0 {
		missing = append(missing, "PLAID_ACCESS_TOKENS")
	}
	if c.Sheets.SpreadsheetKey == "" {
		missing = append(missing, "GOOGLE_SHEETS_KEY")
	}
	if c.Sheets.CredentialsFile == "" {
		missing = append(missing, "GOOGLE_SHEETS_CREDENTIALS")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	switch c.Plaid.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("invalid PLAID_ENV %q: expected sandbox or production", c.Plaid.Environment)
	}

	set := 0
	for _, v := range []string{c.Changelog.ProjectID, c.Changelog.DatasetID, c.Changelog.TableID} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return errors.New("CHANGELOG_PROJECT, CHANGELOG_DATASET and CHANGELOG_TABLE must be set together")
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
