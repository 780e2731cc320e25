package core

import (
	"fmt"
	"strings"
	"time"
)

type OAuthConfig struct {
	RedirectURI string `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	Scope       string `koanf:"scope" mapstructure:"scope"`
	StateTTL    int    `koanf:"state_ttl_seconds" mapstructure:"state_ttl_seconds"`
}

type RefreshConfig struct {
	LeadWindowMinutes int `koanf:"lead_window_minutes" mapstructure:"lead_window_minutes"`
	MaxAttempts       int `koanf:"max_attempts" mapstructure:"max_attempts"`
	LockTTLSeconds    int `koanf:"lock_ttl_seconds" mapstructure:"lock_ttl_seconds"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	OAuth       OAuthConfig   `koanf:"oauth" mapstructure:"oauth"`
	Refresh     RefreshConfig `koanf:"refresh" mapstructure:"refresh"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "flowsteps",
		OAuth: OAuthConfig{
			Scope:    "org:activity_log_read",
			StateTTL: 600,
		},
		Refresh: RefreshConfig{
			LeadWindowMinutes: 5,
			MaxAttempts:       3,
			LockTTLSeconds:    30,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.OAuth.StateTTL < 0 {
		return fmt.Errorf("core: oauth.state_ttl_seconds must not be negative")
	}
	if c.Refresh.LeadWindowMinutes < 0 {
		return fmt.Errorf("core: refresh.lead_window_minutes must not be negative")
	}
	if c.Refresh.MaxAttempts < 0 {
		return fmt.Errorf("core: refresh.max_attempts must not be negative")
	}
	if c.Refresh.LockTTLSeconds < 0 {
		return fmt.Errorf("core: refresh.lock_ttl_seconds must not be negative")
	}
	return nil
}

func (c Config) normalized() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = defaults.ServiceName
	}
	if strings.TrimSpace(c.OAuth.Scope) == "" {
		c.OAuth.Scope = defaults.OAuth.Scope
	}
	if c.OAuth.StateTTL == 0 {
		c.OAuth.StateTTL = defaults.OAuth.StateTTL
	}
	if c.Refresh.LeadWindowMinutes == 0 {
		c.Refresh.LeadWindowMinutes = defaults.Refresh.LeadWindowMinutes
	}
	if c.Refresh.MaxAttempts == 0 {
		c.Refresh.MaxAttempts = defaults.Refresh.MaxAttempts
	}
	if c.Refresh.LockTTLSeconds == 0 {
		c.Refresh.LockTTLSeconds = defaults.Refresh.LockTTLSeconds
	}
	return c
}

func (c Config) refreshLeadWindow() time.Duration {
	return time.Duration(c.Refresh.LeadWindowMinutes) * time.Minute
}

func (c Config) refreshLockTTL() time.Duration {
	return time.Duration(c.Refresh.LockTTLSeconds) * time.Second
}

func (c Config) stateTTL() time.Duration {
	return time.Duration(c.OAuth.StateTTL) * time.Second
}
