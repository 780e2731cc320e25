package core

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"
)

type testProvider struct {
	id             string
	authorizeFn    func(AuthorizeURLRequest) (string, error)
	exchangeFn     func(context.Context, ExchangeRequest) (TokenGrant, error)
	refreshFn      func(context.Context, RefreshGrantRequest) (TokenGrant, error)
	fetchFn        func(context.Context, FetchActivityInput) (FetchActivityResult, error)
	exchangeCalls  int
	refreshCalls   int
	fetchCalls     int
	authorizeCalls int
}

func (p *testProvider) ID() string {
	if p.id == "" {
		return "figma"
	}
	return p.id
}

func (p *testProvider) AuthorizeURL(req AuthorizeURLRequest) (string, error) {
	p.authorizeCalls++
	if p.authorizeFn != nil {
		return p.authorizeFn(req)
	}
	query := url.Values{}
	query.Set("client_id", req.ClientID)
	query.Set("state", req.State)
	return "https://auth.example.com/oauth?" + query.Encode(), nil
}

func (p *testProvider) Exchange(ctx context.Context, req ExchangeRequest) (TokenGrant, error) {
	p.exchangeCalls++
	if p.exchangeFn != nil {
		return p.exchangeFn(ctx, req)
	}
	return TokenGrant{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		UserID:       "user-1",
		ExpiresIn:    3600,
	}, nil
}

func (p *testProvider) RefreshGrant(ctx context.Context, req RefreshGrantRequest) (TokenGrant, error) {
	p.refreshCalls++
	if p.refreshFn != nil {
		return p.refreshFn(ctx, req)
	}
	return TokenGrant{
		AccessToken: "rotated-access-token",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

func (p *testProvider) FetchActivity(ctx context.Context, in FetchActivityInput) (FetchActivityResult, error) {
	p.fetchCalls++
	if p.fetchFn != nil {
		return p.fetchFn(ctx, in)
	}
	return FetchActivityResult{FileKey: "abc123", Logs: []ActivityLogEvent{}}, nil
}

type testServiceStores struct {
	integrations *MemoryIntegrationStore
	stepLogs     *MemoryStepLogStore
	executions   *MemoryExecutionStore
	baselines    *MemoryBaselineStore
}

func newTestService(t *testing.T, provider Provider, extra ...Option) (*Service, testServiceStores) {
	t.Helper()
	stores := testServiceStores{
		integrations: NewMemoryIntegrationStore(),
		stepLogs:     NewMemoryStepLogStore(),
		executions:   NewMemoryExecutionStore(),
		baselines:    NewMemoryBaselineStore(),
	}
	options := append([]Option{
		WithIntegrationStore(stores.integrations),
		WithStepLogStore(stores.stepLogs),
		WithExecutionStore(stores.executions),
		WithBaselineStore(stores.baselines),
	}, extra...)
	service, err := NewService(Config{}, options...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if provider != nil {
		if err := service.RegisterProvider(provider); err != nil {
			t.Fatalf("RegisterProvider: %v", err)
		}
	}
	return service, stores
}

func seedConnectedIntegration(stores testServiceStores, id string) {
	expiresAt := time.Now().UTC().Add(time.Hour)
	stores.integrations.Seed(Integration{
		ID:   id,
		Type: "figma",
		Config: FigmaConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			UserID:       "user-1",
			ExpiresAt:    &expiresAt,
		}.ToMap(),
	})
}

type failingStepLogStore struct {
	appendErr error
}

func (s failingStepLogStore) Append(context.Context, AppendStepLogInput) (ExecutionStepLog, error) {
	return ExecutionStepLog{}, s.appendErr
}

func (s failingStepLogStore) LatestSuccess(context.Context, LatestStepLogQuery) (ExecutionStepLog, error) {
	return ExecutionStepLog{}, fmt.Errorf("not implemented")
}
