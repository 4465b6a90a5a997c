package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (c *Client) ListSubtasks(ctx context.Context, project, task uuid.UUID) ([]Subtask, error) {
	return listAll[Subtask](ctx, c, taskPath(project, task)+"subtasks/", nil)
}

func (c *Client) CreateSubtask(ctx context.Context, project, task uuid.UUID, title string) (Subtask, error) {
	var s Subtask
	body := map[string]string{"title": strings.TrimSpace(title)}
	err := c.do(ctx, http.MethodPost, taskPath(project, task)+"subtasks/", nil, body, &s)
	return s, err
}

// SetSubtaskDone patches only the is_done flag.
func (c *Client) SetSubtaskDone(ctx context.Context, project, task, subtask uuid.UUID, done bool) (Subtask, error) {
	var s Subtask
	body := map[string]bool{"is_done": done}
	err := c.do(ctx, http.MethodPatch, taskPath(project, task)+fmt.Sprintf("subtasks/%s/", subtask), nil, body, &s)
	return s, err
}

func (c *Client) DeleteSubtask(ctx context.Context, project, task, subtask uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, taskPath(project, task)+fmt.Sprintf("subtasks/%s/", subtask), nil, nil, nil)
}
