package chatwoot

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chatwoot-assignment-balancer/pkg/config"
	"chatwoot-assignment-balancer/pkg/constants"
	"chatwoot-assignment-balancer/pkg/metrics"
	"chatwoot-assignment-balancer/pkg/payload"
)

// Client talks to the helpdesk REST API. One underlying transport is shared
// across all calls; each call carries its own timeout. Remote failures never
// surface as errors: every failure mode is an ordinary return value so
// callers can inspect and branch.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	perPage    int
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

func NewClient(cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.Assignment.VerifyTLS},
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout(),
		},
		baseURL: fmt.Sprintf("%s/api/v1/accounts/%s", cfg.Domain, cfg.AccountID),
		token:   cfg.APIToken,
		perPage: cfg.PerPage,
		logger:  logger,
		metrics: m,
	}
}

// GetTeamMembers fetches the raw roster payload for a team, or nil on any
// failure.
func (c *Client) GetTeamMembers(ctx context.Context, teamID any) any {
	path := fmt.Sprintf(constants.PathTeamMembers, payload.ScalarString(teamID))
	return c.getJSON(ctx, "team_members", path, nil)
}

// ListConversations fetches one page of the conversation listing, filtered
// server-side by status and team where the API supports it.
func (c *Client) ListConversations(ctx context.Context, page int, statuses []string, teamID any) any {
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("per_page", fmt.Sprintf("%d", c.perPage))
	params.Set("status", strings.Join(statuses, ","))
	if teamID != nil {
		params.Set("team_id", payload.ScalarString(teamID))
	}
	return c.getJSON(ctx, "conversations", constants.PathConversations, params)
}

// GetConversation fetches a single raw conversation payload, or nil.
func (c *Client) GetConversation(ctx context.Context, conversationID any) any {
	path := fmt.Sprintf(constants.PathConversation, payload.ScalarString(conversationID))
	return c.getJSON(ctx, "conversation", path, nil)
}

// AssignTeam assigns the conversation to a team without an agent.
func (c *Client) AssignTeam(ctx context.Context, conversationID, teamID any) (int, map[string]any) {
	path := fmt.Sprintf(constants.PathAssignments, payload.ScalarString(conversationID))
	return c.postJSON(ctx, "assignments", path, map[string]any{"team_id": teamID})
}

// AssignAgent assigns the conversation to a team and a specific agent.
func (c *Client) AssignAgent(ctx context.Context, conversationID, teamID, assigneeID any) (int, map[string]any) {
	path := fmt.Sprintf(constants.PathAssignments, payload.ScalarString(conversationID))
	return c.postJSON(ctx, "assignments", path, map[string]any{"team_id": teamID, "assignee_id": assigneeID})
}

// SetPriority toggles the conversation priority.
func (c *Client) SetPriority(ctx context.Context, conversationID, priority any) (int, map[string]any) {
	path := fmt.Sprintf(constants.PathTogglePriority, payload.ScalarString(conversationID))
	return c.postJSON(ctx, "toggle_priority", path, map[string]any{"priority": priority})
}

// PostPrivateNote posts a private message on the conversation.
func (c *Client) PostPrivateNote(ctx context.Context, conversationID any, content string) (int, map[string]any) {
	path := fmt.Sprintf(constants.PathMessages, payload.ScalarString(conversationID))
	return c.postJSON(ctx, "messages", path, map[string]any{"private": true, "content": content})
}

// getJSON returns the parsed body of a 2xx JSON response, or nil on network
// failure, non-2xx status, or an unparseable body.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values) any {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		c.metrics.RemoteRequestFailures.WithLabelValues(endpoint, "network").Inc()
		return nil
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RemoteRequestDuration.WithLabelValues(http.MethodGet, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RemoteRequestFailures.WithLabelValues(endpoint, "network").Inc()
		c.logger.WithError(err).WithField("endpoint", endpoint).Debug("GET failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RemoteRequestFailures.WithLabelValues(endpoint, "rejection").Inc()
		c.logger.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Debug("GET rejected")
		return nil
	}

	var parsed any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.metrics.RemoteRequestFailures.WithLabelValues(endpoint, "malformed").Inc()
		return nil
	}
	return parsed
}

// postJSON returns the response status and a body map. Status 0 signals a
// network-layer failure and carries a synthetic error body; non-JSON
// response bodies are wrapped as {status_code, text}.
func (c *Client) postJSON(ctx context.Context, endpoint, path string, body map[string]any) (int, map[string]any) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, map[string]any{"error": "network", "detail": err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, map[string]any{"error": "network", "detail": err.Error()}
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RemoteRequestDuration.WithLabelValues(http.MethodPost, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RemoteRequestFailures.WithLabelValues(endpoint, "network").Inc()
		c.logger.WithError(err).WithField("endpoint", endpoint).Debug("POST failed")
		return 0, map[string]any{"error": "network", "detail": err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.metrics.RemoteRequestFailures.WithLabelValues(endpoint, "rejection").Inc()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, map[string]any{"status_code": resp.StatusCode, "text": ""}
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return resp.StatusCode, map[string]any{"status_code": resp.StatusCode, "text": string(raw)}
	}
	return resp.StatusCode, parsed
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("api_access_token", c.token)
	req.Header.Set("Content-Type", "application/json")
}
