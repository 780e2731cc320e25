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
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ExecutionStore struct {
	db   *bun.DB
	repo repository.Repository[*executionRecord]
}

func NewExecutionStore(db *bun.DB) (*ExecutionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*executionRecord](db, executionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid execution repository wiring: %w", err)
		}
	}
	return &ExecutionStore{db: db, repo: repo}, nil
}

func (s *ExecutionStore) Get(ctx context.Context, id string) (core.Execution, error) {
	if s == nil || s.repo == nil {
		return core.Execution{}, fmt.Errorf("sqlstore: execution store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Execution{}, core.ValidationError("execution id is required")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Execution{}, core.NotFoundError(fmt.Sprintf("execution %q not found", id))
		}
		return core.Execution{}, err
	}
	return record.toDomain(), nil
}

// CreateExecutionInput seeds a new execution row.
type CreateExecutionInput struct {
	ID         string
	WorkflowID string
	Status     core.ExecutionStatus
}

func (s *ExecutionStore) Create(ctx context.Context, in CreateExecutionInput) (core.Execution, error) {
	if s == nil || s.repo == nil {
		return core.Execution{}, fmt.Errorf("sqlstore: execution store is not configured")
	}
	if strings.TrimSpace(in.WorkflowID) == "" {
		return core.Execution{}, core.ValidationError("workflow id is required")
	}
	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.ExecutionStatusRunning
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	record := &executionRecord{
		ID:         id,
		WorkflowID: strings.TrimSpace(in.WorkflowID),
		Status:     string(status),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Execution{}, err
	}
	return created.toDomain(), nil
}

func (s *ExecutionStore) UpdateStatus(ctx context.Context, id string, status core.ExecutionStatus) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: execution store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ValidationError("execution id is required")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFoundError(fmt.Sprintf("execution %q not found", id))
		}
		return err
	}
	current.Status = strings.TrimSpace(string(status))
	current.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, current, repository.UpdateByID(id))
	return err
}
