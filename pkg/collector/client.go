package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/pkg/logger"
)

// IClient talks to the product backend's analytics endpoints.
type IClient interface {
	// Track delivers one payload and returns any behavioral command the
	// backend attached to the response.
	Track(ctx context.Context, payload dto.TrackPayload) (*dto.TrackResponse, error)

	// TrackBeacon is the teardown-path delivery: fire-and-forget, no timeout,
	// no way to observe failure.
	TrackBeacon(payload dto.TrackPayload)

	// LinkSession attributes prior anonymous activity to a user.
	LinkSession(ctx context.Context, req dto.LinkSessionRequest) error
}

type client struct {
	baseURL string
	http    *http.Client
	beacon  *http.Client
	logger  logger.ILogger
}

func NewClient(baseURL string, log logger.ILogger) IClient {
	return &client{
		baseURL: baseURL,
		// Normal sends are bounded; a hung heartbeat must not pin a goroutine.
		http: &http.Client{Timeout: 10 * time.Second},
		// Beacon sends mimic keepalive semantics: the request is abandoned
		// to the transport, never cancelled.
		beacon: &http.Client{},
		logger: log,
	}
}

func (c *client) Track(ctx context.Context, payload dto.TrackPayload) (*dto.TrackResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal track payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analytics/track", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build track request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("track request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("track request rejected with status %d", resp.StatusCode)
	}

	var out dto.TrackResponse
	// A body that fails to decode is a missing command, not an error (best
	// effort all the way down).
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &dto.TrackResponse{}, nil
	}
	return &out, nil
}

func (c *client) TrackBeacon(payload dto.TrackPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/analytics/track", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.beacon.Do(req)
	if err != nil {
		c.logger.Debug("collector", "Beacon send failed", map[string]interface{}{"error": err.Error()})
		return
	}
	resp.Body.Close()
}

func (c *client) LinkSession(ctx context.Context, linkReq dto.LinkSessionRequest) error {
	body, err := json.Marshal(linkReq)
	if err != nil {
		return fmt.Errorf("failed to marshal link-session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analytics/link-session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build link-session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("link-session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("link-session rejected with status %d", resp.StatusCode)
	}
	return nil
}
