package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/sadopc/taskhub/internal/access"
)

func memberPath(project, member uuid.UUID) string {
	return fmt.Sprintf("projects/%s/members/%s/", project, member)
}

func (c *Client) ListMembers(ctx context.Context, project uuid.UUID) ([]Membership, error) {
	return listAll[Membership](ctx, c, projectPath(project)+"members/", nil)
}

// AddMember adds username to the project with role.
func (c *Client) AddMember(ctx context.Context, project uuid.UUID, username string, role access.Role) (Membership, error) {
	var m Membership
	body := map[string]string{"username": username, "role": role.String()}
	err := c.do(ctx, http.MethodPost, projectPath(project)+"members/", nil, body, &m)
	return m, err
}

func (c *Client) UpdateMemberRole(ctx context.Context, project, member uuid.UUID, role access.Role) (Membership, error) {
	var m Membership
	body := map[string]string{"role": role.String()}
	err := c.do(ctx, http.MethodPatch, memberPath(project, member), nil, body, &m)
	return m, err
}

func (c *Client) RemoveMember(ctx context.Context, project, member uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, memberPath(project, member), nil, nil, nil)
}
