package vecindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteIndex talks to a dedicated vector server over HTTP. Construction
// performs a heartbeat and fails fast: a misconfigured endpoint should stop
// the service at startup, not surface as empty retrievals later.
type RemoteIndex struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemote creates a remote index and verifies the server heartbeat.
func NewRemote(ctx context.Context, endpoint, apiKey string, timeout time.Duration) (*RemoteIndex, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &RemoteIndex{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
	if err := r.Ping(ctx); err != nil {
		return nil, fmt.Errorf("vecindex: vector server unreachable at %s: %w", endpoint, err)
	}
	return r, nil
}

type remoteAddRequest struct {
	Scope   Scope   `json:"scope"`
	Entries []Entry `json:"entries"`
}

type remoteAddResponse struct {
	Added int `json:"added"`
}

type remoteSearchRequest struct {
	Scope  Scope     `json:"scope"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

type remoteSearchResponse struct {
	Results []Result `json:"results"`
}

type remoteDeleteRequest struct {
	Scope  Scope  `json:"scope"`
	Source string `json:"source,omitempty"`
}

type remoteDeleteResponse struct {
	Deleted int `json:"deleted"`
}

func (r *RemoteIndex) Add(ctx context.Context, scope Scope, entries []Entry) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	var resp remoteAddResponse
	if err := r.post(ctx, "/api/v1/entries", remoteAddRequest{Scope: scope, Entries: entries}, &resp); err != nil {
		return 0, err
	}
	return resp.Added, nil
}

func (r *RemoteIndex) Search(ctx context.Context, scope Scope, vector []float32, k int) ([]Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}
	var resp remoteSearchResponse
	if err := r.post(ctx, "/api/v1/search", remoteSearchRequest{Scope: scope, Vector: vector, K: k}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

type remoteTenantSearchRequest struct {
	UserID string    `json:"user_id"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}

// SearchTenant asks the server for the nearest entries across every
// definition the tenant owns.
func (r *RemoteIndex) SearchTenant(ctx context.Context, userID string, vector []float32, k int) ([]Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("vecindex: tenant search missing user_id")
	}
	if k <= 0 {
		k = 5
	}
	var resp remoteSearchResponse
	if err := r.post(ctx, "/api/v1/search/tenant", remoteTenantSearchRequest{UserID: userID, Vector: vector, K: k}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (r *RemoteIndex) DeleteBySource(ctx context.Context, scope Scope, source string) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	var resp remoteDeleteResponse
	if err := r.post(ctx, "/api/v1/delete", remoteDeleteRequest{Scope: scope, Source: source}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (r *RemoteIndex) DeleteScope(ctx context.Context, scope Scope) (int, error) {
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	var resp remoteDeleteResponse
	if err := r.post(ctx, "/api/v1/delete", remoteDeleteRequest{Scope: scope}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

type remoteSourcesRequest struct {
	Scope Scope `json:"scope"`
}

type remoteSourcesResponse struct {
	Sources []string `json:"sources"`
}

func (r *RemoteIndex) ListSources(ctx context.Context, scope Scope) ([]string, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var resp remoteSourcesResponse
	if err := r.post(ctx, "/api/v1/sources", remoteSourcesRequest{Scope: scope}, &resp); err != nil {
		return nil, err
	}
	return resp.Sources, nil
}

// Ping hits the heartbeat endpoint.
func (r *RemoteIndex) Ping(ctx context.Context) error {
	url := r.endpoint + "/api/v1/heartbeat"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (r *RemoteIndex) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vecindex: marshal request: %w", err)
	}

	url := r.endpoint + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
