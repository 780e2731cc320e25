package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	FlowErrorValidation      = "FLOWSTEPS_VALIDATION"
	FlowErrorConfig          = "FLOWSTEPS_CONFIG"
	FlowErrorUnauthenticated = "FLOWSTEPS_UNAUTHENTICATED"
	FlowErrorNotFound        = "FLOWSTEPS_NOT_FOUND"
	FlowErrorOwnership       = "FLOWSTEPS_OWNERSHIP"
	FlowErrorAuthExpired     = "FLOWSTEPS_AUTH_EXPIRED"
	FlowErrorPermission      = "FLOWSTEPS_PERMISSION"
	FlowErrorUpstream        = "FLOWSTEPS_UPSTREAM"
	FlowErrorTransport       = "FLOWSTEPS_TRANSPORT"
	FlowErrorUpstreamAuth    = "FLOWSTEPS_UPSTREAM_AUTH"
	FlowErrorRefreshLocked   = "FLOWSTEPS_REFRESH_LOCKED"
	FlowErrorRateLimited     = "FLOWSTEPS_RATE_LIMITED"
	FlowErrorInternal        = "FLOWSTEPS_INTERNAL"
)

// ValidationError marks malformed caller input: bad URLs, missing fields.
func ValidationError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(FlowErrorValidation),
	)
}

// ConfigError marks a misconfigured integration: missing client id, secret,
// or token material.
func ConfigError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryValidation).
			WithTextCode(FlowErrorConfig),
	)
}

func UnauthenticatedError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryAuth).
			WithTextCode(FlowErrorUnauthenticated),
	)
}

func NotFoundError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryNotFound).
			WithTextCode(FlowErrorNotFound),
	)
}

// OwnershipError marks a baseline that belongs to a different workflow.
func OwnershipError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryAuthz).
			WithTextCode(FlowErrorOwnership),
	)
}

// AuthExpiredError marks a 401 from the provider: the stored access token is
// no longer accepted and the account must be reconnected.
func AuthExpiredError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryAuth).
			WithTextCode(FlowErrorAuthExpired),
	)
}

// PermissionError marks a 403 from the provider: plan or licensing denies the
// requested resource.
func PermissionError(message string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, goerrors.CategoryAuthz).
			WithTextCode(FlowErrorPermission),
	)
}

// UpstreamError carries a non-2xx provider response that is neither an auth
// nor a permission failure.
func UpstreamError(message string, statusCode int) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(FlowErrorUpstream)
	if statusCode > 0 {
		err = err.WithMetadata(map[string]any{"upstream_status": statusCode})
	}
	return ensureFlowErrorEnvelope(err)
}

// UpstreamAuthError marks the token endpoint rejecting an exchange or refresh.
func UpstreamAuthError(message string, statusCode int) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(FlowErrorUpstreamAuth)
	if statusCode > 0 {
		err = err.WithMetadata(map[string]any{"upstream_status": statusCode})
	}
	return ensureFlowErrorEnvelope(err)
}

// TransportError wraps a network or parse failure on the provider wire.
func TransportError(source error, message string) *goerrors.Error {
	if source == nil {
		return ensureFlowErrorEnvelope(
			goerrors.New(message, goerrors.CategoryExternal).
				WithTextCode(FlowErrorTransport),
		)
	}
	return ensureFlowErrorEnvelope(
		goerrors.Wrap(source, goerrors.CategoryExternal, message).
			WithTextCode(FlowErrorTransport),
	)
}

// MapFlowError normalizes any error into the rich envelope used across the
// module. Transports use it to derive status codes and text codes.
func MapFlowError(err error) *goerrors.Error {
	return flowErrorMapper(err)
}

func flowErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureFlowErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "not registered"):
		return ensureFlowErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryNotFound).
				WithTextCode(FlowErrorNotFound),
		)
	case strings.Contains(msg, "lock already held"), strings.Contains(msg, "refresh lock"):
		return ensureFlowErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryConflict).
				WithTextCode(FlowErrorRefreshLocked),
		)
	case strings.Contains(msg, "oauth state"):
		return ensureFlowErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).
				WithTextCode(FlowErrorValidation),
		)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return ensureFlowErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).
				WithTextCode(FlowErrorValidation),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureFlowErrorEnvelope(mapped)
}

func ensureFlowErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = flowHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultFlowTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultFlowTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return FlowErrorValidation
	case goerrors.CategoryValidation:
		return FlowErrorConfig
	case goerrors.CategoryAuth:
		return FlowErrorUnauthenticated
	case goerrors.CategoryAuthz:
		return FlowErrorPermission
	case goerrors.CategoryNotFound:
		return FlowErrorNotFound
	case goerrors.CategoryConflict:
		return FlowErrorRefreshLocked
	case goerrors.CategoryRateLimit:
		return FlowErrorRateLimited
	case goerrors.CategoryExternal:
		return FlowErrorUpstream
	default:
		return FlowErrorInternal
	}
}

func flowHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
