package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// IntegrationStore persists provider integrations. Rows are owned by the
// platform's integration registry; this core only reads them and rewrites the
// token-related config keys.
type IntegrationStore interface {
	Get(ctx context.Context, id string) (Integration, error)
	SaveConfig(ctx context.Context, id string, config map[string]string) (Integration, error)
}

type AppendStepLogInput struct {
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

type LatestStepLogQuery struct {
	ExecutionID   string
	NodeType      string
	ExcludeNodeID string
}

type StepLogStore interface {
	Append(ctx context.Context, in AppendStepLogInput) (ExecutionStepLog, error)
	LatestSuccess(ctx context.Context, q LatestStepLogQuery) (ExecutionStepLog, error)
}

type ExecutionStore interface {
	Get(ctx context.Context, id string) (Execution, error)
}

type CreateBaselineInput struct {
	WorkflowID string
	Name       string
	Data       []map[string]any
}

type UpdateBaselineInput struct {
	ID          string
	WorkflowID  string
	Name        string
	Data        []map[string]any
	ReplaceData bool
}

type BaselineStore interface {
	Create(ctx context.Context, in CreateBaselineInput) (BaselineSnapshot, error)
	Get(ctx context.Context, id string) (BaselineSnapshot, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]BaselineSnapshot, error)
	Update(ctx context.Context, in UpdateBaselineInput) (BaselineSnapshot, error)
	Delete(ctx context.Context, id string) error
}

type AuthorizeURLRequest struct {
	ClientID    string
	RedirectURI string
	Scope       string
	State       string
}

type ExchangeRequest struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Code         string
}

type RefreshGrantRequest struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TokenGrant is the token endpoint's successful response.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	UserID       string
	ExpiresIn    int64
}

type FetchActivityInput struct {
	AccessToken string
	FileURL     string
	Events      []string
	DateRange   DateRange
	Limit       int
	Order       string
	Cursor      string
}

// FetchActivityResult is one page of filtered activity. JSON field names are
// part of the step-output contract consumed by change detection.
type FetchActivityResult struct {
	FileKey   string             `json:"fileKey"`
	Logs      []ActivityLogEvent `json:"logs"`
	Cursor    string             `json:"cursor,omitempty"`
	HasMore   bool               `json:"hasMore"`
	StartTime int64              `json:"startTime"`
	EndTime   int64              `json:"endTime"`
}

// Provider is one third-party integration backend: the token endpoints plus
// the paginated activity query.
type Provider interface {
	ID() string
	AuthorizeURL(req AuthorizeURLRequest) (string, error)
	Exchange(ctx context.Context, req ExchangeRequest) (TokenGrant, error)
	RefreshGrant(ctx context.Context, req RefreshGrantRequest) (TokenGrant, error)
	FetchActivity(ctx context.Context, in FetchActivityInput) (FetchActivityResult, error)
}

type Registry interface {
	Register(provider Provider) error
	Get(providerID string) (Provider, bool)
	List() []Provider
}

type StoreProvider interface {
	IntegrationStore() IntegrationStore
	StepLogStore() StepLogStore
	ExecutionStore() ExecutionStore
	BaselineStore() BaselineStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

// ReplayLedger claims a job idempotency key for a window. A rejected claim
// means an equivalent job already ran recently and the delivery should be
// dropped instead of reprocessed.
type ReplayLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
