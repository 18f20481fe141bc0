// Package client talks to the task tracker HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/tasktracker/internal/domain/task"
	"github.com/geocoder89/tasktracker/internal/domain/user"
)

const DefaultBaseURL = "http://localhost:3001"

// APIError is a non-2xx answer from the server. Message is the server's
// text, meant to be shown as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         user.Public `json:"user"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets where the bearer token is read from on every request.
func WithToken(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		token:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, username, email, password string) (user.Public, error) {
	var out user.Public
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) ListTasks(ctx context.Context) ([]task.Task, error) {
	var out []task.Task
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &out)
	return out, err
}

func (c *Client) ListTasksWithUsers(ctx context.Context) ([]task.Task, error) {
	var out []task.Task
	err := c.do(ctx, http.MethodGet, "/tasks/with-users", nil, &out)
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (task.Task, error) {
	var out task.Task
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, req task.CreateRequest) (task.Task, error) {
	var out task.Task
	err := c.do(ctx, http.MethodPost, "/tasks", req, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, req task.UpdateRequest) (task.Task, error) {
	var out task.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id), req, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	apiErr := &APIError{Status: status}

	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	if apiErr.Message == "" {
		apiErr.Message = "Something went wrong"
	}
	return apiErr
}
