package api

import (
	"encoding/json"
	"fmt"
)

// Health calls /health and returns its status string.
func (c *Client) Health() (string, error) {
	data, err := c.get("/health")
	if err != nil {
		return "", err
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(unwrapEnvelope(data), &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if payload.Status == "" {
		payload.Status = "ok"
	}
	return payload.Status, nil
}
