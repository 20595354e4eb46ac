// Package webhookcall posts an automation payload to an external URL.
package webhookcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tasklane/automation/pkg/models"
	"github.com/tasklane/automation/pkg/template"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20 // 1 MiB
)

var (
	ErrURLMissing = errors.New("webhook_call action requires a 'url'")
	ErrBadStatus  = errors.New("webhook endpoint returned an error status")
)

type Action struct {
	client  *http.Client
	url     string
	method  string
	headers map[string]string
	body    string
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrURLMissing
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)

	if raw, ok := config["headers"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	body, _ := config["body"].(string)

	return &Action{
		client:  &http.Client{Timeout: defaultTimeout},
		url:     url,
		method:  strings.ToUpper(method),
		headers: headers,
		body:    body,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "webhook_call")

	url, err := template.RenderWithContext(a.url, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url: %w", err)
	}

	body, err := a.buildBody(executionCtx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, a.method, fmt.Sprintf("%v", url), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.headers {
		rendered, err := template.RenderWithContext(value, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render header %q: %w", key, err)
		}

		req.Header.Set(key, fmt.Sprintf("%v", rendered))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook call failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	logger.InfoContext(ctx, "webhook called", "status_code", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		parsed = string(respBody)
	}

	return map[string]any{"statusCode": resp.StatusCode, "body": parsed}, nil
}

// buildBody renders the configured body template, or falls back to posting
// the execution context itself.
func (a *Action) buildBody(executionCtx models.ExecutionContext) (string, error) {
	if a.body == "" {
		data, err := json.Marshal(executionCtx)
		if err != nil {
			return "", fmt.Errorf("failed to marshal execution context: %w", err)
		}

		return string(data), nil
	}

	rendered, err := template.RenderWithContext(a.body, executionCtx)
	if err != nil {
		return "", fmt.Errorf("failed to render body: %w", err)
	}

	if s, ok := rendered.(string); ok {
		return s, nil
	}

	data, err := json.Marshal(rendered)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rendered body: %w", err)
	}

	return string(data), nil
}
