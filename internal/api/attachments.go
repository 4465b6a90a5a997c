package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

func (c *Client) ListAttachments(ctx context.Context, project, task uuid.UUID) ([]Attachment, error) {
	return listAll[Attachment](ctx, c, taskPath(project, task)+"attachments/", nil)
}

// UploadAttachment sends the file at path as the multipart field "file".
func (c *Client) UploadAttachment(ctx context.Context, project, task uuid.UUID, path string) (Attachment, error) {
	var a Attachment
	body, contentType, err := multipartBody(nil, "file", path)
	if err != nil {
		return a, err
	}
	u, err := c.endpoint(taskPath(project, task)+"attachments/", nil)
	if err != nil {
		return a, err
	}
	err = c.send(ctx, http.MethodPost, u, body, contentType, &a)
	return a, err
}

func (c *Client) DeleteAttachment(ctx context.Context, project, task, attachment uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, taskPath(project, task)+fmt.Sprintf("attachments/%s/", attachment), nil, nil, nil)
}
