// Package agentclient talks to the external agent server over HTTP: a
// black-box RPC surface for creating sessions, posting tasks, and polling
// for results. The server is assumed to run the OpenCode-compatible
// session API, configured via the OPENCODE_* environment variables.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maruel/roundtrippers"
)

const (
	defaultRequestTimeout = 300 * time.Second
	sendTaskTimeout       = 600 * time.Second
	pollInterval          = 1500 * time.Millisecond
	defaultPollDeadline   = 120 * time.Second
	heartbeatInterval     = 15 * time.Second
)

// AgentDidNotRun is raised when send_task neither returns an assistant
// message directly nor produces one within the polling deadline. The
// Orchestrator treats this as non-retryable.
type AgentDidNotRun struct {
	SessionID string
	Deadline  time.Duration
}

func (e *AgentDidNotRun) Error() string {
	return fmt.Sprintf("agent did not produce an assistant message for session %s within %s", e.SessionID, e.Deadline)
}

// Client wraps the agent server's HTTP surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	progress   func(string)
}

// New builds a Client. username/password enable basic auth when non-empty;
// verbose wraps every request/response in a logging round-tripper.
// progress receives one-line status strings from the polling loop and the
// send_task heartbeat; pass nil to discard them.
func New(baseURL, username, password string, verbose bool, progress func(string)) *Client {
	var transport http.RoundTripper = http.DefaultTransport

	if username != "" || password != "" {
		transport = &basicAuthTransport{transport: transport, username: username, password: password}
	}
	transport = &roundtrippers.Retry{Transport: transport}
	if verbose {
		transport = &roundtrippers.Log{Transport: transport}
	}

	if progress == nil {
		progress = func(string) {}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: transport, Timeout: defaultRequestTimeout},
		progress:   progress,
	}
}

// basicAuthTransport applies HTTP basic auth. roundtrippers ships generic
// middleware (retry, logging) but not a credential-specific transport, so
// this one small adapter is hand-rolled to compose with the rest of the
// chain via the same http.RoundTripper interface.
type basicAuthTransport struct {
	transport        http.RoundTripper
	username, password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.transport.RoundTrip(req)
}

// CheckHealth issues a GET to the server's health endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("health check: server returned %d", resp.StatusCode)
	}
	return nil
}

// CreateSession asks the server for a new session rooted at directory.
func (c *Client) CreateSession(ctx context.Context, directory string) (string, error) {
	body := map[string]string{"directory": directory}
	resp, err := c.postJSON(ctx, "/session", body, defaultRequestTimeout)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	defer resp.Body.Close()

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding create_session response: %w", err)
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("create_session: response is not an object")
	}
	id, ok := obj["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("create_session: response missing string id")
	}
	return id, nil
}

// CleanupSession best-effort deletes a session; callers should not treat a
// failure here as fatal.
func (c *Client) CleanupSession(ctx context.Context, sessionID, directory string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/session/%s?directory=%s", sessionID, directory), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, timeout time.Duration) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
}
