package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

func taskPath(project, task uuid.UUID) string {
	return fmt.Sprintf("projects/%s/tasks/%s/", project, task)
}

func (f TaskFilter) values() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Assignee != "" {
		q.Set("assignee", string(f.Assignee))
	}
	if f.Label != uuid.Nil {
		q.Set("label", f.Label.String())
	}
	if f.DueBefore != nil && !f.DueBefore.IsZero() {
		q.Set("due_before", f.DueBefore.String())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.Ordering != "" {
		q.Set("ordering", f.Ordering)
	}
	return q
}

func (c *Client) ListTasks(ctx context.Context, project uuid.UUID, f TaskFilter) ([]Task, error) {
	return listAll[Task](ctx, c, projectPath(project)+"tasks/", f.values())
}

func (c *Client) GetTask(ctx context.Context, project, task uuid.UUID) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodGet, taskPath(project, task), nil, nil, &t)
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, project uuid.UUID, in TaskInput) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodPost, projectPath(project)+"tasks/", nil, in, &t)
	return t, err
}

// UpdateTask replaces the task's editable fields.
func (c *Client) UpdateTask(ctx context.Context, project, task uuid.UUID, in TaskInput) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodPut, taskPath(project, task), nil, in, &t)
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, project, task uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, taskPath(project, task), nil, nil, nil)
}
