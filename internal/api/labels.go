package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (c *Client) ListLabels(ctx context.Context, project uuid.UUID) ([]Label, error) {
	return listAll[Label](ctx, c, projectPath(project)+"labels/", nil)
}

func (c *Client) CreateLabel(ctx context.Context, project uuid.UUID, name, colorHex string) (Label, error) {
	var l Label
	body := map[string]string{"name": strings.TrimSpace(name), "color_hex": strings.ToLower(colorHex)}
	err := c.do(ctx, http.MethodPost, projectPath(project)+"labels/", nil, body, &l)
	return l, err
}

func (c *Client) DeleteLabel(ctx context.Context, project, label uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("projects/%s/labels/%s/", project, label), nil, nil, nil)
}
