// Package workflows is a thin forwarding client for the external
// workflow-orchestration API. It adds no behavior of its own: every call is
// built from the account context and bearer token the auth core established.
package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CallContext is the read-only session context a forwarded call needs.
type CallContext struct {
	AccessToken string
	BasePath    string
	AccountID   string
}

// Client forwards workflow operations to the provider API.
type Client struct {
	httpClient *http.Client
}

// New creates a workflow client. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// List returns the account's workflow definitions.
func (c *Client) List(ctx context.Context, cc CallContext) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodGet, "/workflows", nil)
}

// Create registers a new workflow definition.
func (c *Client) Create(ctx context.Context, cc CallContext, definition json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodPost, "/workflows", definition)
}

// Trigger starts an instance of a workflow with the given payload.
func (c *Client) Trigger(ctx context.Context, cc CallContext, workflowID string, payload json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodPost, "/workflows/"+workflowID+"/trigger", payload)
}

// Publish makes a workflow definition available for triggering.
func (c *Client) Publish(ctx context.Context, cc CallContext, workflowID string) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodPost, "/workflows/"+workflowID+"/publish", nil)
}

// Pause suspends new runs of a workflow.
func (c *Client) Pause(ctx context.Context, cc CallContext, workflowID string) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodPost, "/workflows/"+workflowID+"/pause", nil)
}

// Resume lifts a pause.
func (c *Client) Resume(ctx context.Context, cc CallContext, workflowID string) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodPost, "/workflows/"+workflowID+"/resume", nil)
}

// Cancel aborts a running workflow instance.
func (c *Client) Cancel(ctx context.Context, cc CallContext, instanceID string) (json.RawMessage, error) {
	return c.do(ctx, cc, http.MethodPost, "/workflows/instances/"+instanceID+"/cancel", nil)
}

func (c *Client) do(ctx context.Context, cc CallContext, method, path string, body json.RawMessage) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/accounts/%s%s", cc.BasePath, cc.AccountID, path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building workflow request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cc.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading workflow response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("workflow API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}
