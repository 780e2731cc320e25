package core

import (
	"fmt"
	"strings"
	"time"
)

type Integration struct {
	ID        string
	Type      string
	Config    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusError   StepStatus = "error"
)

// ExecutionStepLog is one immutable row of the execution trace. Exactly one
// row is appended per step invocation.
type ExecutionStepLog struct {
	ID          string
	ExecutionID string
	NodeID      string
	NodeType    string
	Status      StepStatus
	Input       map[string]any
	Output      map[string]any
	DurationMs  int64
	Error       string
	Timestamp   time.Time
}

type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

type Execution struct {
	ID         string
	WorkflowID string
	Status     ExecutionStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BaselineSnapshot is a named, persisted set of previously seen events, the
// reference set for change detection. Entries are unique by id.
type BaselineSnapshot struct {
	ID         string
	WorkflowID string
	Name       string
	Data       []map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b BaselineSnapshot) Validate() error {
	if strings.TrimSpace(b.WorkflowID) == "" {
		return ValidationError("core: baseline workflow id is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return ValidationError("core: baseline name is required")
	}
	if b.Data == nil {
		return ValidationError("core: baseline data must be a sequence")
	}
	return validateUniqueEntryIDs(b.Data)
}

// validateUniqueEntryIDs rejects a baseline data set where two entries carry
// the same id. Entries without an id never collide and pass through.
func validateUniqueEntryIDs(data []map[string]any) error {
	seen := make(map[string]struct{}, len(data))
	for _, entry := range data {
		id := entryID(entry)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return ValidationError(fmt.Sprintf("core: baseline data contains duplicate id %q", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

type ActivityAction struct {
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
}

// ActivityLogEvent is a provider-issued event. Sourced entirely from the
// provider; never created or mutated locally.
type ActivityLogEvent struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Action    ActivityAction `json:"action"`
	Actor     map[string]any `json:"actor,omitempty"`
	Entity    map[string]any `json:"entity,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// MainFileKey returns action.details.main_file_key, the file-level
// correlation key for an organization-scoped event.
func (e ActivityLogEvent) MainFileKey() string {
	if len(e.Action.Details) == 0 {
		return ""
	}
	value, ok := e.Action.Details["main_file_key"]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

type DateRange string

const (
	DateRange7Days  DateRange = "7days"
	DateRange30Days DateRange = "30days"
	DateRange90Days DateRange = "90days"
)

// Days resolves the range to whole days, defaulting to 7 when unset or
// unrecognized.
func (r DateRange) Days() int {
	switch DateRange(strings.TrimSpace(strings.ToLower(string(r)))) {
	case DateRange30Days:
		return 30
	case DateRange90Days:
		return 90
	default:
		return 7
	}
}

// TokenLifecycleState describes where an integration's token sits in its
// lifecycle. The state is derived from stored config rather than persisted.
type TokenLifecycleState string

const (
	TokenStateUnconfigured         TokenLifecycleState = "unconfigured"
	TokenStateAuthorizationPending TokenLifecycleState = "authorization_pending"
	TokenStateActive               TokenLifecycleState = "active"
	TokenStateExpired              TokenLifecycleState = "expired"
)

func DeriveTokenLifecycleState(cfg FigmaConfig, now time.Time) TokenLifecycleState {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return TokenStateUnconfigured
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return TokenStateAuthorizationPending
	}
	if cfg.ExpiresAt != nil && !cfg.ExpiresAt.After(now.UTC()) {
		return TokenStateExpired
	}
	return TokenStateActive
}

// FetchNodeType is the step-log node type recorded for an activity fetch of
// the given provider, the key change detection uses to find the prior fetch.
func FetchNodeType(providerID string) string {
	providerID = strings.TrimSpace(strings.ToLower(providerID))
	if providerID == "" {
		providerID = "figma"
	}
	return providerID + "/get-activity-logs"
}

// DetectNodeType is the step-log node type recorded for a change detection
// step of the given provider.
func DetectNodeType(providerID string) string {
	providerID = strings.TrimSpace(strings.ToLower(providerID))
	if providerID == "" {
		providerID = "figma"
	}
	return providerID + "/detect-change"
}
