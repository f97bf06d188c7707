package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the Guardian API.
type Config struct {
	APIURL   string // Base URL, e.g. "http://localhost:8080"
	APIToken string // Parent's access token
}

// GuardianClient is a pure HTTP client for the Guardian API.
type GuardianClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewGuardianClient creates a new client for the Guardian API.
func NewGuardianClient(cfg Config) *GuardianClient {
	return &GuardianClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *GuardianClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ListChildren returns the parent's child profiles.
func (c *GuardianClient) ListChildren(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/children", nil, nil)
}

// GetDashboard returns the aggregated family dashboard.
func (c *GuardianClient) GetDashboard(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/dashboard", nil, nil)
}

// GetDailySummary returns a child's screen time for one day.
func (c *GuardianClient) GetDailySummary(ctx context.Context, childID, date string) (json.RawMessage, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/screen-time/daily/"+childID, q, nil)
}

// GetWeeklySummary returns a child's screen time over the last week.
func (c *GuardianClient) GetWeeklySummary(ctx context.Context, childID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/screen-time/weekly/"+childID, nil, nil)
}

// CalculateRisk runs a fresh risk assessment for a child.
func (c *GuardianClient) CalculateRisk(ctx context.Context, childID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/children/"+childID+"/risk/calculate", nil, nil)
}

// GetRiskHistory returns past risk assessments, newest first.
func (c *GuardianClient) GetRiskHistory(ctx context.Context, childID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/children/"+childID+"/risk", q, nil)
}

// GetGamification returns a child's points, streak, level, and badges.
func (c *GuardianClient) GetGamification(ctx context.Context, childID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/children/"+childID+"/gamification", nil, nil)
}

// AwardPoints grants bonus points to a child.
func (c *GuardianClient) AwardPoints(ctx context.Context, childID string, points int, reason string) (json.RawMessage, error) {
	body := map[string]any{
		"childId": childID,
		"points":  points,
		"reason":  reason,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/gamification/reward", nil, body)
}

// ListAlerts returns the parent's alerts.
func (c *GuardianClient) ListAlerts(ctx context.Context, unreadOnly bool, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/alerts", q, nil)
}
