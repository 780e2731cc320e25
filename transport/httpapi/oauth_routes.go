package httpapi

import (
	"html"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-flowsteps/core"
)

type initiateOAuthBody struct {
	IntegrationID string `json:"integrationId"`
	ProviderID    string `json:"providerId"`
	ClientID      string `json:"clientId"`
	RedirectURI   string `json:"redirectUri"`
}

func (s *Server) handleInitiateOAuth(c *fiber.Ctx) error {
	var body initiateOAuthBody
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, core.ValidationError("request body must be valid JSON"))
	}

	response, err := s.service.InitiateOAuth(c.UserContext(), core.InitiateOAuthRequest{
		IntegrationID: body.IntegrationID,
		ProviderID:    body.ProviderID,
		ClientID:      body.ClientID,
		RedirectURI:   body.RedirectURI,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(response)
}

// handleOAuthCallback is the browser-facing leg of the authorization flow.
// It renders HTML rather than JSON because the provider redirects the
// user's browser here.
func (s *Server) handleOAuthCallback(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if providerError := strings.TrimSpace(c.Query("error")); providerError != "" {
		description := strings.TrimSpace(c.Query("error_description"))
		if description == "" {
			description = providerError
		}
		return s.renderCallbackPage(c, fiber.StatusBadRequest, "Connection failed", description)
	}
	if code == "" || state == "" {
		return s.renderCallbackPage(c, fiber.StatusBadRequest, "Connection failed", "The authorization response is missing the code or state parameter.")
	}
	if s.sessions != nil {
		subject, sessionErr := s.sessions.Resolve(c)
		if sessionErr != nil || strings.TrimSpace(subject) == "" {
			return s.renderCallbackPage(c, fiber.StatusUnauthorized, "Connection failed", "Sign in before connecting the account, then retry the authorization.")
		}
	}

	result, err := s.service.CompleteOAuth(c.UserContext(), core.CompleteOAuthRequest{
		ProviderID: strings.TrimSpace(c.Query("provider")),
		Code:       code,
		State:      state,
	})
	if err != nil {
		rich := core.MapFlowError(err)
		status := rich.Code
		if status <= 0 {
			status = fiber.StatusInternalServerError
		}
		return s.renderCallbackPage(c, status, "Connection failed", rich.Message)
	}

	s.logger.Info("oauth connection completed", "integration_id", result.IntegrationID)
	return s.renderCallbackPage(c, fiber.StatusOK, "Connected", "The account is connected. You can close this window.")
}

type refreshTokenBody struct {
	IntegrationID string `json:"integrationId"`
	ProviderID    string `json:"providerId"`
}

func (s *Server) handleRefreshToken(c *fiber.Ctx) error {
	var body refreshTokenBody
	if err := c.BodyParser(&body); err != nil {
		return s.writeError(c, core.ValidationError("request body must be valid JSON"))
	}

	result, err := s.service.RefreshToken(c.UserContext(), core.RefreshTokenRequest{
		IntegrationID: body.IntegrationID,
		ProviderID:    body.ProviderID,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"integrationId": result.IntegrationID,
		"expiresAt":     result.ExpiresAt,
	})
}

func (s *Server) renderCallbackPage(c *fiber.Ctx, status int, title string, message string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	page := "<!DOCTYPE html><html><head><title>" + html.EscapeString(title) + "</title></head>" +
		"<body><h1>" + html.EscapeString(title) + "</h1>" +
		"<p>" + html.EscapeString(message) + "</p></body></html>"
	return c.Status(status).SendString(page)
}
