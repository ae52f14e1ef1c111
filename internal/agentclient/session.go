package agentclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetSession, GetFileStatus, and GetSessionDiff back trajectory collection.
// All three are best-effort: callers tolerate failure and record a raw/
// degraded value rather than aborting the run over auxiliary telemetry.

// GetSession fetches session metadata. A non-dict response is returned as
// an empty map so callers always have something to range over, plus the
// original decoded value for debugging.
func (c *Client) GetSession(ctx context.Context, sessionID, directory string) (map[string]interface{}, interface{}, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/session/%s?directory=%s", sessionID, directory))
	if err != nil {
		return map[string]interface{}{}, nil, err
	}
	defer resp.Body.Close()

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return map[string]interface{}{}, nil, err
	}
	if obj, ok := decoded.(map[string]interface{}); ok {
		return obj, decoded, nil
	}
	return map[string]interface{}{}, decoded, nil
}

// GetFileStatus returns the raw decoded response; trajectory aggregation
// treats an unexpected shape as "no file status available" rather than
// failing the run.
func (c *Client) GetFileStatus(ctx context.Context, sessionID, directory string) (interface{}, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/session/%s/file-status?directory=%s", sessionID, directory))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// GetSessionDiff returns the server-computed diff for the session, if the
// server supports it.
func (c *Client) GetSessionDiff(ctx context.Context, sessionID, directory string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/session/%s/diff?directory=%s", sessionID, directory))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded struct {
		Diff string `json:"diff"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Diff, nil
}
