package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Login exchanges username and password for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	var tp TokenPair
	err := c.do(ctx, http.MethodPost, "auth/login/", nil, creds, &tp)
	if errors.Is(err, ErrUnauthorized) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if tp.AccessToken() == "" {
		return TokenPair{}, fmt.Errorf("%w: login response carries no token", ErrProtocol)
	}
	return tp, nil
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "auth/register/", nil, reg, &u)
	return u, err
}

// Me returns the account behind the current credential.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "auth/me/", nil, nil, &p)
	return p, err
}

func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "auth/profile/", nil, nil, &p)
	return p, err
}

// UpdateProfile replaces the profile. With an avatar the body is sent as
// multipart form data, otherwise as JSON.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (Profile, error) {
	var p Profile
	fields := map[string]string{
		"username": upd.Username,
		"email":    upd.Email,
		"phone":    upd.Phone,
		"timezone": upd.Timezone,
	}

	if strings.TrimSpace(upd.AvatarPath) == "" {
		err := c.do(ctx, http.MethodPut, "auth/profile/", nil, fields, &p)
		return p, err
	}

	body, contentType, err := multipartBody(fields, "avatar", upd.AvatarPath)
	if err != nil {
		return p, err
	}
	u, err := c.endpoint("auth/profile/", nil)
	if err != nil {
		return p, err
	}
	err = c.send(ctx, http.MethodPut, u, body, contentType, &p)
	return p, err
}

// SearchUsers finds users whose username contains query.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(query))
	return listAll[User](ctx, c, "auth/users/", q)
}

// multipartBody builds a form with plain fields and one file part.
func multipartBody(fields map[string]string, fileField, path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	name := filepath.Base(path)
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, name))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
