package queueaccess

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

// Access provides queue operations regardless of API or direct store backing.
// CLI commands program against this interface so they behave the same whether
// the daemon is running or not.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Describe(ctx context.Context, id int64) (*api.Job, error)
	Remove(ctx context.Context, id int64) (bool, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, id int64) (bool, error)
	Health(ctx context.Context) (api.QueueHealthResponse, error)
	DatabaseHealth(ctx context.Context) (api.DatabaseHealthResponse, error)
}

// NewClientAccess returns an Access backed by the daemon's REST API.
func NewClientAccess(client *api.Client) Access {
	return &clientAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct queue database access.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store}
}

type clientAccess struct {
	client *api.Client
}

func (a *clientAccess) Stats(ctx context.Context) (map[string]int, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.Workflow.QueueStats, nil
}

func (a *clientAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	return a.client.ListJobs(ctx, statuses)
}

func (a *clientAccess) Describe(ctx context.Context, id int64) (*api.Job, error) {
	job, err := a.client.GetJob(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (a *clientAccess) Remove(ctx context.Context, id int64) (bool, error) {
	if err := a.client.RemoveJob(ctx, id); err != nil {
		if api.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *clientAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.client.ClearQueue(ctx)
}

func (a *clientAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.client.ClearCompleted(ctx)
}

func (a *clientAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.client.ClearFailed(ctx)
}

func (a *clientAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.client.ResetStuck(ctx)
}

func (a *clientAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.client.RetryAllFailed(ctx)
}

func (a *clientAccess) Retry(ctx context.Context, id int64) (bool, error) {
	if _, err := a.client.RetryJob(ctx, id); err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusConflict || se.StatusCode == http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *clientAccess) Health(ctx context.Context) (api.QueueHealthResponse, error) {
	health, err := a.client.QueueHealth(ctx)
	if err != nil {
		return api.QueueHealthResponse{}, err
	}
	return *health, nil
}

func (a *clientAccess) DatabaseHealth(ctx context.Context) (api.DatabaseHealthResponse, error) {
	health, err := a.client.DatabaseHealth(ctx)
	if err != nil {
		return api.DatabaseHealthResponse{}, err
	}
	return *health, nil
}

type storeAccess struct {
	store *queue.Store
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return api.MergeQueueStats(stats), nil
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	filters, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	jobs, err := a.store.List(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs), nil
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.Job, error) {
	job, err := a.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	converted := api.FromJob(job)
	return &converted, nil
}

func (a *storeAccess) Remove(ctx context.Context, id int64) (bool, error) {
	return a.store.Remove(ctx, id)
}

func (a *storeAccess) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *storeAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *storeAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *storeAccess) Retry(ctx context.Context, id int64) (bool, error) {
	updated, err := a.store.RetryFailed(ctx, id)
	if err != nil {
		return false, err
	}
	return updated > 0, nil
}

func (a *storeAccess) Health(ctx context.Context) (api.QueueHealthResponse, error) {
	health, err := a.store.Health(ctx)
	if err != nil {
		return api.QueueHealthResponse{}, err
	}
	return api.QueueHealthResponse{
		Total:      health.Total,
		Queued:     health.Queued,
		Processing: health.Processing,
		Failed:     health.Failed,
		Completed:  health.Completed,
	}, nil
}

func (a *storeAccess) DatabaseHealth(ctx context.Context) (api.DatabaseHealthResponse, error) {
	health, err := a.store.CheckHealth(ctx)
	if err != nil {
		return api.DatabaseHealthResponse{}, err
	}
	return api.FromDatabaseHealth(health), nil
}

func parseStatuses(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
