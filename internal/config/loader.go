// Package config loads service configuration from the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCalendarID   string
	WebhookURL         string
	ProviderTimeout    time.Duration
	ProviderRateLimit  float64
	ProviderBurst      int
	RenewalInterval    time.Duration
	RenewalHorizon     time.Duration
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and accumulating every missing or invalid entry into a
// single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:booking.db?_foreign_keys=on",
		GoogleCalendarID:  "primary",
		ProviderTimeout:   10 * time.Second,
		ProviderRateLimit: 5.0,
		ProviderBurst:     10,
		RenewalInterval:   12 * time.Hour,
		RenewalHorizon:    24 * time.Hour,
	}

	missing := make([]string, 0, 3)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if clientID := strings.TrimSpace(os.Getenv("BOOKING_GOOGLE_CLIENT_ID")); clientID == "" {
		missing = append(missing, "BOOKING_GOOGLE_CLIENT_ID")
	} else {
		cfg.GoogleClientID = clientID
	}

	if clientSecret := strings.TrimSpace(os.Getenv("BOOKING_GOOGLE_CLIENT_SECRET")); clientSecret == "" {
		missing = append(missing, "BOOKING_GOOGLE_CLIENT_SECRET")
	} else {
		cfg.GoogleClientSecret = clientSecret
	}

	if calendarID := strings.TrimSpace(os.Getenv("BOOKING_GOOGLE_CALENDAR_ID")); calendarID != "" {
		cfg.GoogleCalendarID = calendarID
	}

	if webhookURL := strings.TrimSpace(os.Getenv("BOOKING_WEBHOOK_URL")); webhookURL == "" {
		missing = append(missing, "BOOKING_WEBHOOK_URL")
	} else if !strings.HasPrefix(webhookURL, "https://") {
		// Google only delivers push notifications to HTTPS addresses.
		invalid = append(invalid, "BOOKING_WEBHOOK_URL")
	} else {
		cfg.WebhookURL = webhookURL
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("BOOKING_PROVIDER_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "BOOKING_PROVIDER_TIMEOUT")
		} else {
			cfg.ProviderTimeout = timeout
		}
	}

	if rateValue := strings.TrimSpace(os.Getenv("BOOKING_PROVIDER_RATE_LIMIT")); rateValue != "" {
		limit, err := strconv.ParseFloat(rateValue, 64)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "BOOKING_PROVIDER_RATE_LIMIT")
		} else {
			cfg.ProviderRateLimit = limit
		}
	}

	if burstValue := strings.TrimSpace(os.Getenv("BOOKING_PROVIDER_BURST")); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "BOOKING_PROVIDER_BURST")
		} else {
			cfg.ProviderBurst = burst
		}
	}

	if intervalValue := strings.TrimSpace(os.Getenv("BOOKING_RENEWAL_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "BOOKING_RENEWAL_INTERVAL")
		} else {
			cfg.RenewalInterval = interval
		}
	}

	if horizonValue := strings.TrimSpace(os.Getenv("BOOKING_RENEWAL_HORIZON")); horizonValue != "" {
		horizon, err := time.ParseDuration(horizonValue)
		if err != nil || horizon <= 0 {
			invalid = append(invalid, "BOOKING_RENEWAL_HORIZON")
		} else {
			cfg.RenewalHorizon = horizon
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
