package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-flowsteps/core"
)

const (
	ProviderID  = "figma"
	AuthURL     = "https://www.figma.com/oauth"
	TokenURL    = "https://api.figma.com/v1/oauth/token"
	ActivityURL = "https://api.figma.com/v1/activity_logs"

	DefaultScope = "org:activity_log_read"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	AuthURL        string
	TokenURL       string
	ActivityURL    string
	Scope          string
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Now            func() time.Time
}

func DefaultConfig() Config {
	return Config{
		AuthURL:     AuthURL,
		TokenURL:    TokenURL,
		ActivityURL: ActivityURL,
		Scope:       DefaultScope,
	}
}

// Provider implements the token endpoints and the activity-log query
// against the Figma REST API.
type Provider struct {
	cfg        Config
	httpClient HTTPDoer
}

var _ core.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	defaults := DefaultConfig()
	cfg.AuthURL = strings.TrimSpace(cfg.AuthURL)
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaults.AuthURL
	}
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaults.TokenURL
	}
	cfg.ActivityURL = strings.TrimSpace(cfg.ActivityURL)
	if cfg.ActivityURL == "" {
		cfg.ActivityURL = defaults.ActivityURL
	}
	cfg.Scope = strings.TrimSpace(cfg.Scope)
	if cfg.Scope == "" {
		cfg.Scope = defaults.Scope
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Now().UTC()
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Provider{cfg: cfg, httpClient: httpClient}, nil
}

func (p *Provider) ID() string {
	return ProviderID
}

func (p *Provider) AuthorizeURL(req core.AuthorizeURLRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("figma: provider is nil")
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return "", core.ConfigError("figma client id is required")
	}
	state := strings.TrimSpace(req.State)
	if state == "" {
		return "", core.ValidationError("authorization state is required")
	}
	scope := strings.TrimSpace(req.Scope)
	if scope == "" {
		scope = p.cfg.Scope
	}

	values := url.Values{}
	values.Set("client_id", clientID)
	if redirectURI := strings.TrimSpace(req.RedirectURI); redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	values.Set("scope", scope)
	values.Set("state", state)
	values.Set("response_type", "code")

	authURL := p.cfg.AuthURL
	if strings.Contains(authURL, "?") {
		return authURL + "&" + values.Encode(), nil
	}
	return authURL + "?" + values.Encode(), nil
}

func (p *Provider) Exchange(ctx context.Context, req core.ExchangeRequest) (core.TokenGrant, error) {
	if p == nil {
		return core.TokenGrant{}, fmt.Errorf("figma: provider is nil")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.TokenGrant{}, core.ValidationError("authorization code is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI := strings.TrimSpace(req.RedirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	return p.fetchToken(ctx, req.ClientID, req.ClientSecret, form)
}

func (p *Provider) RefreshGrant(ctx context.Context, req core.RefreshGrantRequest) (core.TokenGrant, error) {
	if p == nil {
		return core.TokenGrant{}, fmt.Errorf("figma: provider is nil")
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, core.ConfigError("refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return p.fetchToken(ctx, req.ClientID, req.ClientSecret, form)
}

// tokenPayload is the token endpoint's JSON body. Figma reports the account
// owner as a numeric user_id; json.Number keeps both shapes readable.
type tokenPayload struct {
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	TokenType        string      `json:"token_type"`
	ExpiresIn        int64       `json:"expires_in"`
	UserID           json.Number `json:"user_id"`
	ErrorCode        string      `json:"error"`
	ErrorDescription string      `json:"message"`
}

func (p *Provider) fetchToken(ctx context.Context, clientID, clientSecret string, form url.Values) (core.TokenGrant, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return core.TokenGrant{}, core.ConfigError("figma client credentials are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		p.cfg.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return core.TokenGrant{}, core.TransportError(err, "figma: build token request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(clientID, clientSecret)

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return core.TokenGrant{}, core.TransportError(err, "figma: token request failed")
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return core.TokenGrant{}, core.TransportError(readErr, "figma: read token response")
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return core.TokenGrant{}, core.TransportError(nil, fmt.Sprintf("figma: token response exceeds %d bytes", maxResponseBodyBytes))
	}

	var payload tokenPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
			return core.TokenGrant{}, core.UpstreamAuthError(
				fmt.Sprintf("figma token endpoint returned %d", response.StatusCode),
				response.StatusCode,
			)
		}
		return core.TokenGrant{}, core.TransportError(err, "figma: decode token response")
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.TokenGrant{}, core.UpstreamAuthError(
			fmt.Sprintf("figma token endpoint returned %d: %s", response.StatusCode, describeTokenError(payload)),
			response.StatusCode,
		)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return core.TokenGrant{}, core.UpstreamAuthError(
			"figma token endpoint error: "+describeTokenError(payload),
			response.StatusCode,
		)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenGrant{}, core.UpstreamAuthError("figma token response missing access token", response.StatusCode)
	}

	return core.TokenGrant{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		TokenType:    normalizeTokenType(payload.TokenType),
		UserID:       strings.TrimSpace(payload.UserID.String()),
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

func describeTokenError(payload tokenPayload) string {
	if description := strings.TrimSpace(payload.ErrorDescription); description != "" {
		return description
	}
	if code := strings.TrimSpace(payload.ErrorCode); code != "" {
		return code
	}
	return "unknown error"
}

func normalizeTokenType(tokenType string) string {
	tokenType = strings.TrimSpace(tokenType)
	if tokenType == "" {
		return "Bearer"
	}
	return tokenType
}
