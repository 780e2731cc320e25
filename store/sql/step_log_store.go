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

type StepLogStore struct {
	db   *bun.DB
	repo repository.Repository[*stepLogRecord]
}

func NewStepLogStore(db *bun.DB) (*StepLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*stepLogRecord](db, stepLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid step log repository wiring: %w", err)
		}
	}
	return &StepLogStore{db: db, repo: repo}, nil
}

// Append inserts one immutable trace row. Rows are never updated after the
// fact.
func (s *StepLogStore) Append(ctx context.Context, in core.AppendStepLogInput) (core.ExecutionStepLog, error) {
	if s == nil || s.repo == nil {
		return core.ExecutionStepLog{}, fmt.Errorf("sqlstore: step log store is not configured")
	}
	if strings.TrimSpace(in.ExecutionID) == "" {
		return core.ExecutionStepLog{}, core.ValidationError("execution id is required")
	}
	if strings.TrimSpace(in.NodeID) == "" {
		return core.ExecutionStepLog{}, core.ValidationError("node id is required")
	}

	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	record := &stepLogRecord{
		ID:          uuid.NewString(),
		ExecutionID: strings.TrimSpace(in.ExecutionID),
		NodeID:      strings.TrimSpace(in.NodeID),
		NodeType:    strings.TrimSpace(in.NodeType),
		Status:      string(in.Status),
		Input:       cloneAnyMap(in.Input),
		Output:      cloneAnyMap(in.Output),
		DurationMs:  in.DurationMs,
		Error:       in.Error,
		Timestamp:   timestamp,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.ExecutionStepLog{}, err
	}
	return created.toDomain(), nil
}

// LatestSuccess returns the most recent successful row matching the query,
// newest first by timestamp.
func (s *StepLogStore) LatestSuccess(ctx context.Context, q core.LatestStepLogQuery) (core.ExecutionStepLog, error) {
	if s == nil || s.db == nil {
		return core.ExecutionStepLog{}, fmt.Errorf("sqlstore: step log store is not configured")
	}
	executionID := strings.TrimSpace(q.ExecutionID)
	if executionID == "" {
		return core.ExecutionStepLog{}, core.ValidationError("execution id is required")
	}

	record := &stepLogRecord{}
	query := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.execution_id = ?", executionID).
		Where("?TableAlias.status = ?", string(core.StepStatusSuccess))
	if nodeType := strings.TrimSpace(q.NodeType); nodeType != "" {
		query = query.Where("?TableAlias.node_type = ?", nodeType)
	}
	if excludeNodeID := strings.TrimSpace(q.ExcludeNodeID); excludeNodeID != "" {
		query = query.Where("?TableAlias.node_id != ?", excludeNodeID)
	}
	err := query.
		OrderExpr("?TableAlias.timestamp DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.ExecutionStepLog{}, core.NotFoundError("no successful step log matches the query")
		}
		return core.ExecutionStepLog{}, err
	}
	return record.toDomain(), nil
}

// PruneStepLogs enforces the retention policy over the whole trace table.
// TTL removes rows older than the window; RowCap keeps the newest rows.
func (s *StepLogStore) PruneStepLogs(ctx context.Context, policy core.StepLogRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: step log store is not configured")
	}

	deleted := 0
	if policy.TTL > 0 {
		cutoff := time.Now().UTC().Add(-policy.TTL)
		result, err := s.db.NewDelete().
			Model((*stepLogRecord)(nil)).
			Where("?TableAlias.timestamp < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		if affected, err := result.RowsAffected(); err == nil {
			deleted += int(affected)
		}
	}
	if policy.RowCap > 0 {
		keep := s.db.NewSelect().
			Model((*stepLogRecord)(nil)).
			Column("id").
			OrderExpr("?TableAlias.timestamp DESC").
			Limit(policy.RowCap)
		result, err := s.db.NewDelete().
			Model((*stepLogRecord)(nil)).
			Where("?TableAlias.id NOT IN (?)", keep).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		if affected, err := result.RowsAffected(); err == nil {
			deleted += int(affected)
		}
	}
	return deleted, nil
}

// ListByExecution returns the full trace for one execution, oldest first.
func (s *StepLogStore) ListByExecution(ctx context.Context, executionID string) ([]core.ExecutionStepLog, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: step log store is not configured")
	}
	executionID = strings.TrimSpace(executionID)
	if executionID == "" {
		return nil, core.ValidationError("execution id is required")
	}

	records := []*stepLogRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.execution_id = ?", executionID).
		OrderExpr("?TableAlias.timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.ExecutionStepLog, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
