package spark

import "context"

// Provider is the read surface the comparison engine consumes. *Client
// implements it against a live History Server; tests supply fakes.
type Provider interface {
	GetApplication(ctx context.Context, appID string) (*ApplicationInfo, error)
	ListStages(ctx context.Context, appID string) ([]StageData, error)
	ListAllExecutors(ctx context.Context, appID string) ([]ExecutorSummary, error)
	ListJobs(ctx context.Context, appID string) ([]JobData, error)
	GetEnvironment(ctx context.Context, appID string) (*ApplicationEnvironmentInfo, error)
	GetStageTaskSummary(ctx context.Context, appID string, stageID, attemptID int, quantiles string) (*TaskMetricDistributions, error)
}

var _ Provider = (*Client)(nil)
