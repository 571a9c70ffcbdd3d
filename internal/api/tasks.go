package api

import (
	"context"
	"net/http"
	"net/url"

	taskdomain "github.com/LAZYDOINDIA/LazyUI/internal/task/domain"
)

func taskPath(id taskdomain.ID, suffix string) string {
	return "/tasks/" + url.PathEscape(string(id)) + suffix
}

func filterQuery(f taskdomain.Filters) url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Urgency != "" {
		q.Set("urgency", string(f.Urgency))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// GetTasks lists open tasks matching filters.
func (c *Client) GetTasks(ctx context.Context, filters taskdomain.Filters) ([]taskdomain.Task, error) {
	var out []taskdomain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", filterQuery(filters), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id taskdomain.ID) (*taskdomain.Task, error) {
	return c.taskCall(ctx, http.MethodGet, taskPath(id, ""), nil)
}

// CreateTask posts a new task.
func (c *Client) CreateTask(ctx context.Context, t taskdomain.NewTask) (*taskdomain.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks", t)
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id taskdomain.ID, update taskdomain.Update) (*taskdomain.Task, error) {
	return c.taskCall(ctx, http.MethodPut, taskPath(id, ""), update)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id taskdomain.ID) error {
	return c.do(ctx, http.MethodDelete, taskPath(id, ""), nil, nil, nil)
}

// AcceptTask claims a task for the signed-in taker.
func (c *Client) AcceptTask(ctx context.Context, id taskdomain.ID) (*taskdomain.Task, error) {
	return c.taskCall(ctx, http.MethodPost, taskPath(id, "/accept"), nil)
}

// UpdateTaskStatus sets the task status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id taskdomain.ID, status taskdomain.Status) (*taskdomain.Task, error) {
	body := struct {
		Status taskdomain.Status `json:"status"`
	}{status}
	return c.taskCall(ctx, http.MethodPut, taskPath(id, "/status"), body)
}

// GetPostedTasks lists tasks the signed-in giver posted.
func (c *Client) GetPostedTasks(ctx context.Context) ([]taskdomain.Task, error) {
	var out []taskdomain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/posted", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAcceptedTasks lists tasks the signed-in taker accepted.
func (c *Client) GetAcceptedTasks(ctx context.Context) ([]taskdomain.Task, error) {
	var out []taskdomain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/accepted", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// taskCall sends a request whose response is a single task. A response with no body yields
// a nil task.
func (c *Client) taskCall(ctx context.Context, method, path string, body any) (*taskdomain.Task, error) {
	var out *taskdomain.Task
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
