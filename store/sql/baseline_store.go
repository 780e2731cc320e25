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

type BaselineStore struct {
	db   *bun.DB
	repo repository.Repository[*baselineRecord]
}

func NewBaselineStore(db *bun.DB) (*BaselineStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*baselineRecord](db, baselineHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid baseline repository wiring: %w", err)
		}
	}
	return &BaselineStore{db: db, repo: repo}, nil
}

func (s *BaselineStore) Create(ctx context.Context, in core.CreateBaselineInput) (core.BaselineSnapshot, error) {
	if s == nil || s.repo == nil {
		return core.BaselineSnapshot{}, fmt.Errorf("sqlstore: baseline store is not configured")
	}
	snapshot := core.BaselineSnapshot{
		WorkflowID: strings.TrimSpace(in.WorkflowID),
		Name:       strings.TrimSpace(in.Name),
		Data:       in.Data,
	}
	if err := snapshot.Validate(); err != nil {
		return core.BaselineSnapshot{}, err
	}

	now := time.Now().UTC()
	record := &baselineRecord{
		ID:         uuid.NewString(),
		WorkflowID: snapshot.WorkflowID,
		Name:       snapshot.Name,
		Data:       cloneDataRows(snapshot.Data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.BaselineSnapshot{}, err
	}
	return created.toDomain(), nil
}

func (s *BaselineStore) Get(ctx context.Context, id string) (core.BaselineSnapshot, error) {
	if s == nil || s.repo == nil {
		return core.BaselineSnapshot{}, fmt.Errorf("sqlstore: baseline store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.BaselineSnapshot{}, core.ValidationError("baseline id is required")
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BaselineSnapshot{}, core.NotFoundError(fmt.Sprintf("baseline %q not found", id))
		}
		return core.BaselineSnapshot{}, err
	}
	return record.toDomain(), nil
}

func (s *BaselineStore) ListByWorkflow(ctx context.Context, workflowID string) ([]core.BaselineSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: baseline store is not configured")
	}
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return nil, core.ValidationError("workflow id is required")
	}

	records := []*baselineRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.workflow_id = ?", workflowID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.BaselineSnapshot, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *BaselineStore) Update(ctx context.Context, in core.UpdateBaselineInput) (core.BaselineSnapshot, error) {
	if s == nil || s.repo == nil {
		return core.BaselineSnapshot{}, fmt.Errorf("sqlstore: baseline store is not configured")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return core.BaselineSnapshot{}, core.ValidationError("baseline id is required")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BaselineSnapshot{}, core.NotFoundError(fmt.Sprintf("baseline %q not found", id))
		}
		return core.BaselineSnapshot{}, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		current.Name = name
	}
	if in.ReplaceData || in.Data != nil {
		current.Data = cloneDataRows(in.Data)
		if current.Data == nil {
			current.Data = []map[string]any{}
		}
	}
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, current, repository.UpdateByID(id))
	if err != nil {
		return core.BaselineSnapshot{}, err
	}
	return updated.toDomain(), nil
}

func (s *BaselineStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: baseline store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ValidationError("baseline id is required")
	}
	res, err := s.db.NewDelete().
		Model((*baselineRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NotFoundError(fmt.Sprintf("baseline %q not found", id))
	}
	return nil
}
