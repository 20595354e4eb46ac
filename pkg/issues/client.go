// Package issues talks to the product's issue API over HTTP. It is the
// concrete IssueService the action handlers are wired with.
package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 1 << 20 // 1 MiB
)

var (
	ErrBaseURLMissing = errors.New("issue service base URL is required")
	ErrAPIStatus      = errors.New("issue service returned an error status")
)

// Client implements protocol.IssueService against the issue API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLMissing
	}

	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid issue service URL %q: %w", baseURL, err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger.With("component", "issue_client"),
	}, nil
}

func (c *Client) UpdateField(ctx context.Context, issueID, field string, value any) error {
	path := fmt.Sprintf("/api/issues/%s/fields", url.PathEscape(issueID))

	_, err := c.do(ctx, http.MethodPatch, path, map[string]any{"field": field, "value": value})

	return err
}

func (c *Client) AssignUser(ctx context.Context, issueID, userID string) error {
	path := fmt.Sprintf("/api/issues/%s/assignee", url.PathEscape(issueID))

	_, err := c.do(ctx, http.MethodPut, path, map[string]any{"userId": userID})

	return err
}

func (c *Client) UpdateStatus(ctx context.Context, issueID, status string) error {
	path := fmt.Sprintf("/api/issues/%s/status", url.PathEscape(issueID))

	_, err := c.do(ctx, http.MethodPut, path, map[string]any{"status": status})

	return err
}

func (c *Client) CreateIssue(ctx context.Context, projectID string, fields map[string]any) (string, error) {
	path := fmt.Sprintf("/api/projects/%s/issues", url.PathEscape(projectID))

	body, err := c.do(ctx, http.MethodPost, path, map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to decode created issue: %w", err)
	}

	if created.ID == "" {
		return "", errors.New("issue service returned no issue id")
	}

	return created.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build issue request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("issue request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read issue response: %w", err)
	}

	c.logger.DebugContext(ctx, "issue api call",
		"method", method, "path", path, "status_code", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s %s -> %d", ErrAPIStatus, method, path, resp.StatusCode)
	}

	return body, nil
}
