package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-flowsteps/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type IntegrationStore struct {
	db   *bun.DB
	repo repository.Repository[*integrationRecord]
}

func NewIntegrationStore(db *bun.DB) (*IntegrationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*integrationRecord](db, integrationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid integration repository wiring: %w", err)
		}
	}
	return &IntegrationStore{db: db, repo: repo}, nil
}

func (s *IntegrationStore) Get(ctx context.Context, id string) (core.Integration, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Integration{}, core.ValidationError("integration id is required")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Integration{}, core.NotFoundError(fmt.Sprintf("integration %q not found", id))
		}
		return core.Integration{}, err
	}
	return record.toDomain(), nil
}

// SaveConfig replaces the stored config wholesale.
func (s *IntegrationStore) SaveConfig(ctx context.Context, id string, config map[string]string) (core.Integration, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Integration{}, core.ValidationError("integration id is required")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Integration{}, core.NotFoundError(fmt.Sprintf("integration %q not found", id))
		}
		return core.Integration{}, err
	}
	current.Config = cloneStringMap(config)
	if current.Config == nil {
		current.Config = map[string]string{}
	}
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, current, repository.UpdateByID(id))
	if err != nil {
		return core.Integration{}, err
	}
	return updated.toDomain(), nil
}

// CreateIntegrationInput seeds a new integration row, mostly from setup
// flows and tests.
type CreateIntegrationInput struct {
	ID     string
	Type   string
	Config map[string]string
}

func (s *IntegrationStore) Create(ctx context.Context, in CreateIntegrationInput) (core.Integration, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	if strings.TrimSpace(in.Type) == "" {
		return core.Integration{}, core.ValidationError("integration type is required")
	}
	now := time.Now().UTC()
	record := &integrationRecord{
		ID:        strings.TrimSpace(in.ID),
		Type:      strings.TrimSpace(in.Type),
		Config:    cloneStringMap(in.Config),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if record.Config == nil {
		record.Config = map[string]string{}
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Integration{}, err
	}
	return created.toDomain(), nil
}
