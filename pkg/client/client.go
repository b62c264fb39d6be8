package client

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Endpoint paths served by the scheduling backend
const (
	PathLoadTasks = "/load_tasks"
	PathUser      = "/user"
	PathSchedule  = "/schedule"
)

// ServerError is returned when the backend answers with a non-success status
type ServerError struct {
	Status     int
	StatusText string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error detected: %d (%s)", e.Status, e.StatusText)
}

// Client talks to the scheduling backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client that uses the given http.Client
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// statusText returns the reason phrase of the response status line
func statusText(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if text := strings.TrimPrefix(resp.Status, prefix); text != resp.Status && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
