package httpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-flowsteps/core"
)

// Service is the slice of the core service the HTTP surface exposes.
type Service interface {
	InitiateOAuth(ctx context.Context, req core.InitiateOAuthRequest) (core.InitiateOAuthResponse, error)
	CompleteOAuth(ctx context.Context, req core.CompleteOAuthRequest) (core.CompleteOAuthResult, error)
	RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.RefreshTokenResult, error)
	CreateBaseline(ctx context.Context, in core.CreateBaselineInput) (core.BaselineSnapshot, error)
	GetBaseline(ctx context.Context, workflowID, baselineID string) (core.BaselineSnapshot, error)
	ListBaselines(ctx context.Context, workflowID string) ([]core.BaselineSnapshot, error)
	UpdateBaseline(ctx context.Context, in core.UpdateBaselineInput) (core.BaselineSnapshot, error)
	DeleteBaseline(ctx context.Context, workflowID, baselineID string) error
}

// SessionResolver authenticates a request and returns the session subject.
// A non-nil error rejects the request with 401.
type SessionResolver interface {
	Resolve(c *fiber.Ctx) (string, error)
}

type SessionResolverFunc func(c *fiber.Ctx) (string, error)

func (f SessionResolverFunc) Resolve(c *fiber.Ctx) (string, error) {
	return f(c)
}

type Server struct {
	app      *fiber.App
	service  Service
	logger   core.Logger
	sessions SessionResolver
}

type Option func(*Server)

func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessionResolver(resolver SessionResolver) Option {
	return func(s *Server) {
		s.sessions = resolver
	}
}

func WithApp(app *fiber.App) Option {
	return func(s *Server) {
		if app != nil {
			s.app = app
		}
	}
}

func New(service Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("httpapi: service is required")
	}
	server := &Server{
		service: service,
		logger:  glog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(server)
	}
	if server.app == nil {
		server.app = fiber.New(fiber.Config{
			AppName: "flowsteps",
		})
	}
	server.registerRoutes()
	return server, nil
}

func (s *Server) App() *fiber.App {
	if s == nil {
		return nil
	}
	return s.app
}

func (s *Server) Listen(addr string) error {
	if s == nil || s.app == nil {
		return fmt.Errorf("httpapi: server is not configured")
	}
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	if s == nil || s.app == nil {
		return nil
	}
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	oauth := s.app.Group("/oauth")
	oauth.Post("/initiate", s.requireSession, s.handleInitiateOAuth)
	oauth.Get("/callback", s.handleOAuthCallback)
	oauth.Post("/refresh", s.requireSession, s.handleRefreshToken)

	workflows := s.app.Group("/workflows", s.requireSession)
	workflows.Get("/:workflowId/base-data", s.handleListBaselines)
	workflows.Post("/:workflowId/base-data", s.handleCreateBaseline)
	workflows.Get("/:workflowId/base-data/:baseDataId", s.handleGetBaseline)
	workflows.Patch("/:workflowId/base-data/:baseDataId", s.handleUpdateBaseline)
	workflows.Delete("/:workflowId/base-data/:baseDataId", s.handleDeleteBaseline)
}

// requireSession gates JSON routes with a 401 envelope. The OAuth callback
// enforces the same session check inline so it can render its HTML error
// page after validating the redirect parameters.
func (s *Server) requireSession(c *fiber.Ctx) error {
	if s.sessions == nil {
		return c.Next()
	}
	subject, err := s.sessions.Resolve(c)
	if err != nil || strings.TrimSpace(subject) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    core.FlowErrorUnauthenticated,
				"message": "authentication required",
			},
		})
	}
	c.Locals("session_subject", subject)
	return c.Next()
}
