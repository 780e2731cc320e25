package core

import (
	"strconv"
	"strings"
	"time"
)

// Config keys stored on a workflow integration row. Token expiry is kept as
// epoch milliseconds rendered to a string so the config map stays homogeneous.
const (
	ConfigKeyClientID     = "clientId"
	ConfigKeyClientSecret = "clientSecret"
	ConfigKeyAccessToken  = "accessToken"
	ConfigKeyRefreshToken = "refreshToken"
	ConfigKeyExpiresAt    = "expiresAt"
	ConfigKeyUserID       = "userId"
)

type FigmaConfig struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    *time.Time
	Extra        map[string]string
}

func ParseFigmaConfig(config map[string]string) FigmaConfig {
	parsed := FigmaConfig{Extra: map[string]string{}}
	for key, value := range config {
		value = strings.TrimSpace(value)
		switch key {
		case ConfigKeyClientID:
			parsed.ClientID = value
		case ConfigKeyClientSecret:
			parsed.ClientSecret = value
		case ConfigKeyAccessToken:
			parsed.AccessToken = value
		case ConfigKeyRefreshToken:
			parsed.RefreshToken = value
		case ConfigKeyUserID:
			parsed.UserID = value
		case ConfigKeyExpiresAt:
			if value == "" {
				continue
			}
			millis, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			expiresAt := time.UnixMilli(millis).UTC()
			parsed.ExpiresAt = &expiresAt
		default:
			parsed.Extra[key] = value
		}
	}
	return parsed
}

func (c FigmaConfig) ToMap() map[string]string {
	out := make(map[string]string, len(c.Extra)+6)
	for key, value := range c.Extra {
		out[key] = value
	}
	if c.ClientID != "" {
		out[ConfigKeyClientID] = c.ClientID
	}
	if c.ClientSecret != "" {
		out[ConfigKeyClientSecret] = c.ClientSecret
	}
	if c.AccessToken != "" {
		out[ConfigKeyAccessToken] = c.AccessToken
	}
	if c.RefreshToken != "" {
		out[ConfigKeyRefreshToken] = c.RefreshToken
	}
	if c.UserID != "" {
		out[ConfigKeyUserID] = c.UserID
	}
	if c.ExpiresAt != nil {
		out[ConfigKeyExpiresAt] = strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10)
	}
	return out
}

// ApplyGrant merges a token response into the stored config. A grant that
// omits the refresh token keeps the existing one so a refresh response never
// drops the credential it was obtained with.
func (c FigmaConfig) ApplyGrant(grant TokenGrant, now time.Time) FigmaConfig {
	updated := c
	if strings.TrimSpace(grant.AccessToken) != "" {
		updated.AccessToken = strings.TrimSpace(grant.AccessToken)
	}
	if strings.TrimSpace(grant.RefreshToken) != "" {
		updated.RefreshToken = strings.TrimSpace(grant.RefreshToken)
	}
	if strings.TrimSpace(grant.UserID) != "" {
		updated.UserID = strings.TrimSpace(grant.UserID)
	}
	if grant.ExpiresIn > 0 {
		expiresAt := now.UTC().Add(time.Duration(grant.ExpiresIn) * time.Second)
		updated.ExpiresAt = &expiresAt
	}
	return updated
}
