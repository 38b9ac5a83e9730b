// Package authapi is the HTTP client for the backend session endpoints. It
// implements the session API port with bearer authentication and maps
// transport and status failures onto application error codes.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
	"github.com/digisapp/digis-app-sub003/pkg/errors"
	"github.com/digisapp/digis-app-sub003/pkg/tracing"
)

const defaultRequestTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

var _ ports.SessionAPI = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchSession retrieves and normalizes the authoritative session. Both
// backend payload generations are accepted.
func (c *Client) FetchSession(ctx context.Context, token string) (*domain.SessionClaims, error) {
	ctx, span := tracing.TraceAPIRequest(ctx, http.MethodGet, "/auth/session")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/auth/session", token, nil)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	claims, err := normalizeSession(body)
	if err != nil {
		tracing.RecordError(ctx, err)
		c.logger.Warnw("received malformed session payload", "error", err)
		return nil, err
	}
	return claims, nil
}

// SyncUser idempotently ensures the backend user record exists. Called
// best-effort before every session fetch.
func (c *Client) SyncUser(ctx context.Context, token string) error {
	ctx, span := tracing.TraceAPIRequest(ctx, http.MethodPost, "/auth/sync-user")
	defer span.End()

	_, err := c.do(ctx, http.MethodPost, "/auth/sync-user", token, map[string]interface{}{})
	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewInternalError(fmt.Sprintf("failed to encode request body: %v", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.NewNetworkError(err, "failed to read response body")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.NewUnauthorizedError("token rejected")
	case resp.StatusCode == http.StatusForbidden:
		return nil, errors.NewForbiddenError("access denied")
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NewNotFoundError(path)
	default:
		return nil, errors.NewAppError(errors.ErrCodeInternal,
			fmt.Sprintf("%s %s returned status %d", method, path, resp.StatusCode),
			resp.StatusCode,
		)
	}
}
