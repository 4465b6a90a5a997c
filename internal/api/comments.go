package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

func commentPath(project, task, comment uuid.UUID) string {
	return taskPath(project, task) + fmt.Sprintf("comments/%s/", comment)
}

func (c *Client) ListComments(ctx context.Context, project, task uuid.UUID) ([]Comment, error) {
	return listAll[Comment](ctx, c, taskPath(project, task)+"comments/", nil)
}

func (c *Client) CreateComment(ctx context.Context, project, task uuid.UUID, body string) (Comment, error) {
	var cm Comment
	err := c.do(ctx, http.MethodPost, taskPath(project, task)+"comments/", nil, map[string]string{"body": body}, &cm)
	return cm, err
}

func (c *Client) EditComment(ctx context.Context, project, task, comment uuid.UUID, body string) (Comment, error) {
	var cm Comment
	err := c.do(ctx, http.MethodPatch, commentPath(project, task, comment), nil, map[string]string{"body": body}, &cm)
	return cm, err
}

func (c *Client) DeleteComment(ctx context.Context, project, task, comment uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, commentPath(project, task, comment), nil, nil, nil)
}
