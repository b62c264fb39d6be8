package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

// scheduleMessage is the body of a /schedule response on success and on 400
type scheduleMessage struct {
	Message string `json:"message"`
}

// Submit posts the request to /schedule and classifies the response.
// It always returns exactly one outcome and never retries.
func (c *Client) Submit(ctx context.Context, request tasks.SchedulingRequest) tasks.Outcome {
	body := request.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathSchedule), strings.NewReader(body))
	if err != nil {
		return tasks.TransportFailed(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tasks.TransportFailed(fmt.Errorf("failed to reach %s: %w", PathSchedule, err))
	}
	defer resp.Body.Close()

	return Classify(resp.StatusCode, statusText(resp), resp.Body)
}

// Classify maps a /schedule response to an outcome. The body is only read for 2xx and 400.
func Classify(status int, statusText string, body io.Reader) tasks.Outcome {
	switch {
	case isSuccess(status):
		msg, err := decodeMessage(body)
		if err != nil {
			return tasks.TransportFailed(err)
		}
		return tasks.Succeeded(status, msg)
	case status == http.StatusBadRequest:
		msg, err := decodeMessage(body)
		if err != nil {
			return tasks.TransportFailed(err)
		}
		return tasks.Rejected(status, msg)
	case status > 400 && status < 500:
		return tasks.Rejected(status, "Client error: "+statusText)
	case status >= 500 && status < 600:
		return tasks.ServerFailed(status)
	default:
		return tasks.Rejected(status, "Error")
	}
}

func decodeMessage(body io.Reader) (string, error) {
	var msg scheduleMessage
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return "", fmt.Errorf("failed to decode schedule response: %w", err)
	}
	return msg.Message, nil
}
