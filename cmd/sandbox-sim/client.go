package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// session is the subset of the service's session document the
// simulator cares about.
type session struct {
	ID        string     `json:"id"`
	ProfileID string     `json:"profile_id"`
	Content   string     `json:"content"`
	State     string     `json:"state"`
	Attaches  uint64     `json:"attaches"`
	Changes   uint64     `json:"changes"`
	Writes    uint64     `json:"writes"`
	Sync      *syncStats `json:"sync"`
}

type syncStats struct {
	State              string `json:"state"`
	ChangesForwarded   uint64 `json:"changes_forwarded"`
	EditsCoalesced     uint64 `json:"edits_coalesced"`
	ReplacesSent       uint64 `json:"replaces_sent"`
	SkippedSuppression uint64 `json:"skipped_suppression"`
	SkippedInSync      uint64 `json:"skipped_in_sync"`
	TransportErrors    uint64 `json:"transport_errors"`
}

// apiClient drives the service's REST surface.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(base string) *apiClient {
	// Retryable transport underneath resty, so transient connection
	// failures during service startup are absorbed.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "venuely-sandbox-sim/0.3").
		SetHeader("Content-Type", "application/json")
	rc.SetTransport(retryClient.HTTPClient.Transport)

	return &apiClient{http: rc}
}

func (c *apiClient) CreateSession(ctx context.Context, profileID, content string) (*session, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"profile_id": profileID, "content": content}).
		Post("/editors")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create session: %s: %s", resp.Status(), resp.String())
	}

	var s session
	if err := sonic.Unmarshal(resp.Body(), &s); err != nil {
		return nil, fmt.Errorf("create session: decode: %w", err)
	}
	return &s, nil
}

func (c *apiClient) GetSession(ctx context.Context, id string) (*session, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/editors/" + id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get session: %s: %s", resp.Status(), resp.String())
	}

	var s session
	if err := sonic.Unmarshal(resp.Body(), &s); err != nil {
		return nil, fmt.Errorf("get session: decode: %w", err)
	}
	return &s, nil
}

func (c *apiClient) GetContent(ctx context.Context, id string) (content, digest string, err error) {
	resp, err := c.http.R().SetContext(ctx).Get("/editors/" + id + "/content")
	if err != nil {
		return "", "", fmt.Errorf("get content: %w", err)
	}
	if resp.IsError() {
		return "", "", fmt.Errorf("get content: %s: %s", resp.Status(), resp.String())
	}

	var out struct {
		Content string `json:"content"`
		Digest  string `json:"digest"`
	}
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		return "", "", fmt.Errorf("get content: decode: %w", err)
	}
	return out.Content, out.Digest, nil
}

func (c *apiClient) PutContent(ctx context.Context, id, content string) error {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"content": content}).
		Put("/editors/" + id + "/content")
	if err != nil {
		return fmt.Errorf("put content: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("put content: %s: %s", resp.Status(), resp.String())
	}
	return nil
}

func (c *apiClient) CloseSession(ctx context.Context, id string) error {
	resp, err := c.http.R().SetContext(ctx).Delete("/editors/" + id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("close session: %s: %s", resp.Status(), resp.String())
	}
	return nil
}
