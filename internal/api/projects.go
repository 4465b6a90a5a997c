package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

func projectPath(id uuid.UUID) string {
	return fmt.Sprintf("projects/%s/", id)
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, c, "projects/", nil)
}

// GetProject returns the project with its embedded members and labels.
func (c *Client) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodGet, projectPath(id), nil, nil, &p)
	return p, err
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodPost, "projects/", nil, in, &p)
	return p, err
}

func (c *Client) UpdateProject(ctx context.Context, id uuid.UUID, in ProjectInput) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodPut, projectPath(id), nil, in, &p)
	return p, err
}

func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, projectPath(id), nil, nil, nil)
}

// ToggleArchive flips the archived flag and returns the updated project.
func (c *Client) ToggleArchive(ctx context.Context, id uuid.UUID) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodPost, projectPath(id)+"archive/", nil, nil, &p)
	return p, err
}

func (c *Client) Dashboard(ctx context.Context, id uuid.UUID) (Dashboard, error) {
	var d Dashboard
	err := c.do(ctx, http.MethodGet, projectPath(id)+"dashboard/", nil, nil, &d)
	return d, err
}

// ListActivity returns the project's activity log, newest first.
func (c *Client) ListActivity(ctx context.Context, id uuid.UUID) ([]Activity, error) {
	return listAll[Activity](ctx, c, projectPath(id)+"activity/", nil)
}
