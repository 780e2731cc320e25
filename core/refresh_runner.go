package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRefreshMaxAttempts    = 3
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
	defaultRefreshLockTTL        = 30 * time.Second
)

type LockHandle interface {
	Unlock(ctx context.Context) error
}

type IntegrationLocker interface {
	Acquire(ctx context.Context, integrationID string, ttl time.Duration) (LockHandle, error)
}

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

type RefreshRunResult struct {
	Attempts     int
	ReauthNeeded bool
}

type RefreshRunOptions struct {
	MaxAttempts int
	LockTTL     time.Duration
}

// RunRefreshWithRetry drives RefreshToken with backoff. Unrecoverable failures
// (revoked grants, bad config) stop retrying immediately and surface as
// needing re-authorization.
func (s *Service) RunRefreshWithRetry(ctx context.Context, req RefreshTokenRequest, opts RefreshRunOptions) (RefreshRunResult, error) {
	if s == nil {
		return RefreshRunResult{}, fmt.Errorf("core: service is nil")
	}
	integrationID := strings.TrimSpace(req.IntegrationID)
	if integrationID == "" {
		return RefreshRunResult{}, s.mapError(fmt.Errorf("core: integration id is required"))
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.config.Refresh.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = defaultRefreshMaxAttempts
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = s.config.refreshLockTTL()
	}
	if lockTTL <= 0 {
		lockTTL = defaultRefreshLockTTL
	}

	unlock := func() {}
	if s.integrationLocker != nil {
		lockHandle, lockErr := s.integrationLocker.Acquire(ctx, integrationID, lockTTL)
		if lockErr != nil {
			return RefreshRunResult{}, s.mapError(lockErr)
		}
		unlock = func() {
			_ = lockHandle.Unlock(ctx)
		}
		ctx = withRefreshLockHeld(ctx)
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := s.RefreshToken(ctx, req)
		if err == nil {
			return RefreshRunResult{Attempts: attempt}, nil
		}
		lastErr = err

		if isUnrecoverableRefreshError(err) {
			return RefreshRunResult{Attempts: attempt, ReauthNeeded: true}, s.mapError(err)
		}
		if attempt == maxAttempts {
			return RefreshRunResult{Attempts: attempt, ReauthNeeded: true}, s.mapError(err)
		}

		delay := defaultRefreshInitialBackoff
		if s.refreshBackoffScheduler != nil {
			delay = s.refreshBackoffScheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return RefreshRunResult{Attempts: attempt}, s.mapError(waitErr)
		}
	}

	return RefreshRunResult{Attempts: maxAttempts}, s.mapError(lastErr)
}

type refreshLockContextKey struct{}

func withRefreshLockHeld(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, refreshLockContextKey{}, true)
}

func isRefreshLockHeld(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	held, ok := ctx.Value(refreshLockContextKey{}).(bool)
	return ok && held
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
		case FlowErrorAuthExpired, FlowErrorUnauthenticated, FlowErrorPermission, FlowErrorConfig:
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "invalid refresh token") ||
		strings.Contains(msg, "reauthorization required") ||
		strings.Contains(msg, "re-auth required")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type MemoryIntegrationLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryIntegrationLocker() *MemoryIntegrationLocker {
	return &MemoryIntegrationLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryIntegrationLocker) Acquire(_ context.Context, integrationID string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: integration locker is not configured")
	}
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return nil, fmt.Errorf("core: integration id is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultRefreshLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[integrationID]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: refresh lock already held for integration %q", integrationID)
	}
	l.locks[integrationID] = now.Add(ttl)
	return &memoryLockHandle{locker: l, integrationID: integrationID}, nil
}

type memoryLockHandle struct {
	locker        *MemoryIntegrationLocker
	integrationID string
	once          sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.integrationID)
		h.locker.mu.Unlock()
	})
	return nil
}
