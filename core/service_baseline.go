package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CreateBaseline stores a named reference set for a workflow.
func (s *Service) CreateBaseline(ctx context.Context, in CreateBaselineInput) (baseline BaselineSnapshot, err error) {
	if s == nil {
		return BaselineSnapshot{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "create_baseline", err, map[string]any{
			"workflow_id": in.WorkflowID,
		})
	}()

	if s.baselineStore == nil {
		err = s.mapError(fmt.Errorf("core: baseline store is not configured"))
		return BaselineSnapshot{}, err
	}
	candidate := BaselineSnapshot{
		WorkflowID: strings.TrimSpace(in.WorkflowID),
		Name:       strings.TrimSpace(in.Name),
		Data:       in.Data,
	}
	if err = candidate.Validate(); err != nil {
		err = s.mapError(err)
		return BaselineSnapshot{}, err
	}

	baseline, err = s.baselineStore.Create(ctx, CreateBaselineInput{
		WorkflowID: candidate.WorkflowID,
		Name:       candidate.Name,
		Data:       candidate.Data,
	})
	if err != nil {
		err = s.mapError(err)
		return BaselineSnapshot{}, err
	}
	return baseline, nil
}

// GetBaseline loads a baseline and verifies it belongs to the workflow.
func (s *Service) GetBaseline(ctx context.Context, workflowID, baselineID string) (BaselineSnapshot, error) {
	if s == nil {
		return BaselineSnapshot{}, fmt.Errorf("core: service is nil")
	}
	if s.baselineStore == nil {
		return BaselineSnapshot{}, s.mapError(fmt.Errorf("core: baseline store is not configured"))
	}
	baselineID = strings.TrimSpace(baselineID)
	if baselineID == "" {
		return BaselineSnapshot{}, s.mapError(ValidationError("baseline id is required"))
	}
	baseline, err := s.baselineStore.Get(ctx, baselineID)
	if err != nil {
		return BaselineSnapshot{}, s.mapError(err)
	}
	if workflowID = strings.TrimSpace(workflowID); workflowID != "" && baseline.WorkflowID != workflowID {
		return BaselineSnapshot{}, s.mapError(OwnershipError("baseline belongs to a different workflow"))
	}
	return baseline, nil
}

func (s *Service) ListBaselines(ctx context.Context, workflowID string) ([]BaselineSnapshot, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if s.baselineStore == nil {
		return nil, s.mapError(fmt.Errorf("core: baseline store is not configured"))
	}
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return nil, s.mapError(ValidationError("workflow id is required"))
	}
	baselines, err := s.baselineStore.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return baselines, nil
}

// UpdateBaseline applies a partial update. ReplaceData distinguishes an
// explicit new data set from an untouched one.
func (s *Service) UpdateBaseline(ctx context.Context, in UpdateBaselineInput) (baseline BaselineSnapshot, err error) {
	if s == nil {
		return BaselineSnapshot{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "update_baseline", err, map[string]any{
			"workflow_id": in.WorkflowID,
		})
	}()

	if s.baselineStore == nil {
		err = s.mapError(fmt.Errorf("core: baseline store is not configured"))
		return BaselineSnapshot{}, err
	}
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		err = s.mapError(ValidationError("baseline id is required"))
		return BaselineSnapshot{}, err
	}
	if in.ReplaceData {
		if in.Data == nil {
			err = s.mapError(ValidationError("baseline data must be a sequence"))
			return BaselineSnapshot{}, err
		}
		if err = validateUniqueEntryIDs(in.Data); err != nil {
			err = s.mapError(err)
			return BaselineSnapshot{}, err
		}
	}

	existing, err := s.GetBaseline(ctx, in.WorkflowID, in.ID)
	if err != nil {
		return BaselineSnapshot{}, err
	}
	in.WorkflowID = existing.WorkflowID

	baseline, err = s.baselineStore.Update(ctx, in)
	if err != nil {
		err = s.mapError(err)
		return BaselineSnapshot{}, err
	}
	return baseline, nil
}

func (s *Service) DeleteBaseline(ctx context.Context, workflowID, baselineID string) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_baseline", err, map[string]any{
			"workflow_id": workflowID,
		})
	}()

	if _, err = s.GetBaseline(ctx, workflowID, baselineID); err != nil {
		return err
	}
	if err = s.baselineStore.Delete(ctx, strings.TrimSpace(baselineID)); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}
