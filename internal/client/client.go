// Package client is the Go client for the bridge daemon's HTTP API, used by
// the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudbridge-dev/cloudbridge/internal/jobs"
	"github.com/cloudbridge-dev/cloudbridge/pkg/models"
)

// Client handles communication with a bridge daemon.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the daemon at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ConnectionRequest mirrors the API's create-connection body.
type ConnectionRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Cloud    string `json:"cloud,omitempty"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Org      string `json:"org,omitempty"`
	Space    string `json:"space,omitempty"`
}

// ModuleDeployRequest mirrors the API's deploy-module body.
type ModuleDeployRequest struct {
	UnitID      string `json:"unitId"`
	UnitName    string `json:"unitName"`
	ProjectPath string `json:"projectPath,omitempty"`
}

type apiError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
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

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Detail, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health checks daemon availability.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon unhealthy: %s", resp.Status)
	}
	return nil
}

// CreateConnection configures a new server connection.
func (c *Client) CreateConnection(ctx context.Context, req ConnectionRequest) (*models.Connection, error) {
	var conn models.Connection
	if err := c.do(ctx, http.MethodPost, "/v0/connections", req, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListConnections returns all configured connections.
func (c *Client) ListConnections(ctx context.Context) ([]models.Connection, error) {
	var resp struct {
		Connections []models.Connection `json:"connections"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/connections", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Connections, nil
}

// GetConnection returns one connection by name.
func (c *Client) GetConnection(ctx context.Context, name string) (*models.Connection, error) {
	var conn models.Connection
	if err := c.do(ctx, http.MethodGet, "/v0/connections/"+url.PathEscape(name), nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// DeleteConnection removes a connection and its stored credentials.
func (c *Client) DeleteConnection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/v0/connections/"+url.PathEscape(name), nil, nil)
}

// UpdateCredentials replaces the connection's stored credentials.
func (c *Client) UpdateCredentials(ctx context.Context, name, username, password string) (*models.Connection, error) {
	body := map[string]string{"username": username, "password": password}
	var conn models.Connection
	if err := c.do(ctx, http.MethodPut, "/v0/connections/"+url.PathEscape(name)+"/credentials", body, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// UpdateSpace retargets the connection to a different org and space.
func (c *Client) UpdateSpace(ctx context.Context, name, org, space string) (*models.Connection, error) {
	body := map[string]string{"org": org, "space": space}
	var conn models.Connection
	if err := c.do(ctx, http.MethodPut, "/v0/connections/"+url.PathEscape(name)+"/space", body, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListModules returns the cached modules for a connection.
func (c *Client) ListModules(ctx context.Context, name string) ([]models.Module, error) {
	var resp struct {
		Modules []models.Module `json:"modules"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/connections/"+url.PathEscape(name)+"/modules", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Modules, nil
}

// Refresh reconciles a connection against the platform and returns the
// resulting module list.
func (c *Client) Refresh(ctx context.Context, name string) ([]models.Module, error) {
	var resp struct {
		Modules []models.Module `json:"modules"`
	}
	if err := c.do(ctx, http.MethodPost, "/v0/connections/"+url.PathEscape(name)+"/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Modules, nil
}

// DeployModule schedules a background deployment of the unit.
func (c *Client) DeployModule(ctx context.Context, name string, req ModuleDeployRequest) error {
	return c.do(ctx, http.MethodPost, "/v0/connections/"+url.PathEscape(name)+"/modules", req, nil)
}

// RemoveModule removes a module and deletes its remote application.
func (c *Client) RemoveModule(ctx context.Context, name, unitID string, deleteServices bool) error {
	path := "/v0/connections/" + url.PathEscape(name) + "/modules/" + url.PathEscape(unitID) +
		"?deleteServices=" + strconv.FormatBool(deleteServices)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListJobs returns all known background jobs.
func (c *Client) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	var resp struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetJob returns one job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	var job jobs.Job
	if err := c.do(ctx, http.MethodGet, "/v0/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CancelJob requests cooperative cancellation of a running job.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v0/jobs/"+url.PathEscape(id), nil, nil)
}
