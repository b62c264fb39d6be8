package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shaneisley/taskslot/pkg/tasks"
	"github.com/tidwall/gjson"
)

// User is the signed-in account whose calendar is embedded
type User struct {
	Email string
}

// LoadTasks fetches the pending task list. A non-success status returns a *ServerError
// without reading the body; malformed JSON is returned as a decode error.
func (c *Client) LoadTasks(ctx context.Context) ([]tasks.Task, error) {
	resp, err := c.get(ctx, PathLoadTasks)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, &ServerError{Status: resp.StatusCode, StatusText: statusText(resp)}
	}

	var list []tasks.Task
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode task list: %w", err)
	}
	if list == nil {
		list = []tasks.Task{}
	}

	return list, nil
}

// LoadUser fetches the signed-in user. Both a JSON {"email": ...} body and a plain-text
// email body are accepted.
func (c *Client) LoadUser(ctx context.Context) (User, error) {
	resp, err := c.get(ctx, PathUser)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return User{}, &ServerError{Status: resp.StatusCode, StatusText: statusText(resp)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return User{}, fmt.Errorf("failed to read user response: %w", err)
	}

	var email string
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		switch {
		case parsed.Type == gjson.String:
			email = parsed.String()
		case parsed.Get("email").Exists():
			email = parsed.Get("email").String()
		default:
			return User{}, fmt.Errorf("user response has no email field")
		}
	} else {
		email = string(body)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, fmt.Errorf("user response has an empty email")
	}

	return User{Email: email}, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", path, err)
	}
	return resp, nil
}
