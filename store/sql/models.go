package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type integrationRecord struct {
	bun.BaseModel `bun:"table:workflow_integrations,alias:wi"`

	ID        string            `bun:"id,pk"`
	Type      string            `bun:"type,notnull"`
	Config    map[string]string `bun:"config,type:jsonb,notnull"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type stepLogRecord struct {
	bun.BaseModel `bun:"table:workflow_execution_logs,alias:wel"`

	ID          string         `bun:"id,pk"`
	ExecutionID string         `bun:"execution_id,notnull"`
	NodeID      string         `bun:"node_id,notnull"`
	NodeType    string         `bun:"node_type,notnull"`
	Status      string         `bun:"status,notnull"`
	Input       map[string]any `bun:"input,type:jsonb"`
	Output      map[string]any `bun:"output,type:jsonb"`
	DurationMs  int64          `bun:"duration_ms,notnull"`
	Error       string         `bun:"error"`
	Timestamp   time.Time      `bun:"timestamp,nullzero,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type executionRecord struct {
	bun.BaseModel `bun:"table:workflow_executions,alias:we"`

	ID         string    `bun:"id,pk"`
	WorkflowID string    `bun:"workflow_id,notnull"`
	Status     string    `bun:"status,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type baselineRecord struct {
	bun.BaseModel `bun:"table:workflow_base_data,alias:wbd"`

	ID         string           `bun:"id,pk"`
	WorkflowID string           `bun:"workflow_id,notnull"`
	Name       string           `bun:"name,notnull"`
	Data       []map[string]any `bun:"data,type:jsonb,notnull"`
	CreatedAt  time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
