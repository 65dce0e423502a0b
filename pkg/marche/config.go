package marche

import (
	"net/url"
	"time"
)

// Config configures the Marché241 REST client
type Config struct {
	// BaseURL is the API root, e.g. https://api.marche241.ga/api
	BaseURL string

	// Timeout bounds every request. Zero keeps the default.
	Timeout time.Duration

	// UserAgent is sent on every request when set
	UserAgent string
}

const defaultTimeout = 15 * time.Second

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidConfig
	}
	if c.Timeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}
