package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultOAuthStateTTL = 10 * time.Minute

// OAuthState is the payload carried through the authorization redirect. It is
// serialized as base64 JSON so the callback can recover the integration the
// flow belongs to without server-side lookup.
type OAuthState struct {
	Nonce         string `json:"nonce"`
	IntegrationID string `json:"integrationId"`
}

func NewOAuthState(integrationID string) (OAuthState, error) {
	integrationID = strings.TrimSpace(integrationID)
	if integrationID == "" {
		return OAuthState{}, ValidationError("integration id is required")
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return OAuthState{}, fmt.Errorf("core: generate oauth state nonce: %w", err)
	}
	return OAuthState{
		Nonce:         hex.EncodeToString(raw),
		IntegrationID: integrationID,
	}, nil
}

func EncodeOAuthState(state OAuthState) (string, error) {
	if strings.TrimSpace(state.Nonce) == "" {
		return "", ValidationError("oauth state nonce is required")
	}
	if strings.TrimSpace(state.IntegrationID) == "" {
		return "", ValidationError("oauth state integration id is required")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("core: encode oauth state: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeOAuthState accepts any of the common base64 variants since redirect
// parameters round-trip through browsers and proxies that may re-encode them.
func DecodeOAuthState(encoded string) (OAuthState, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return OAuthState{}, ValidationError("oauth state is required")
	}
	var payload []byte
	var decodeErr error
	for _, encoding := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		payload, decodeErr = encoding.DecodeString(encoded)
		if decodeErr == nil {
			break
		}
	}
	if decodeErr != nil {
		return OAuthState{}, ValidationError("oauth state is not valid base64")
	}
	var state OAuthState
	if err := json.Unmarshal(payload, &state); err != nil {
		return OAuthState{}, ValidationError("oauth state payload is malformed")
	}
	if strings.TrimSpace(state.Nonce) == "" || strings.TrimSpace(state.IntegrationID) == "" {
		return OAuthState{}, ValidationError("oauth state payload is incomplete")
	}
	return state, nil
}

type OAuthStateRecord struct {
	State         string
	IntegrationID string
	ProviderID    string
	RedirectURI   string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

type OAuthStateStore interface {
	Save(ctx context.Context, record OAuthStateRecord) error
	Consume(ctx context.Context, state string) (OAuthStateRecord, error)
}

type MemoryOAuthStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]OAuthStateRecord
}

func NewMemoryOAuthStateStore(ttl time.Duration) *MemoryOAuthStateStore {
	if ttl <= 0 {
		ttl = defaultOAuthStateTTL
	}
	return &MemoryOAuthStateStore{
		ttl:     ttl,
		entries: map[string]OAuthStateRecord{},
	}
}

func (s *MemoryOAuthStateStore) Save(_ context.Context, record OAuthStateRecord) error {
	if s == nil {
		return fmt.Errorf("core: oauth state store is not configured")
	}
	state := strings.TrimSpace(record.State)
	if state == "" {
		return fmt.Errorf("core: oauth state is required")
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[state] = record
	s.mu.Unlock()

	return nil
}

func (s *MemoryOAuthStateStore) Consume(_ context.Context, state string) (OAuthStateRecord, error) {
	if s == nil {
		return OAuthStateRecord{}, fmt.Errorf("core: oauth state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return OAuthStateRecord{}, fmt.Errorf("core: oauth state is required")
	}

	s.mu.Lock()
	record, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return OAuthStateRecord{}, fmt.Errorf("core: oauth state not found")
	}
	if !record.ExpiresAt.IsZero() && time.Now().UTC().After(record.ExpiresAt) {
		return OAuthStateRecord{}, fmt.Errorf("core: oauth state expired")
	}

	return record, nil
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
