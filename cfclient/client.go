package cfclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go"
)

// Client covers the two Cloudflare endpoints the purge pipeline talks to.
// Both return the raw response body so callers can interpret failures themselves.
type Client interface {
	ListZones(ctx context.Context, name string) ([]byte, error)
	PurgeCache(ctx context.Context, zoneID string, req cloudflare.PurgeCacheRequest) ([]byte, error)
}

// Sender is the part of Transport the client needs.
type Sender interface {
	Send(ctx context.Context, method, url string, body []byte) ([]byte, error)
}

type apiClient struct {
	baseURL string
	sender  Sender
}

// NewClient returns a Client that talks to baseURL (normally config.DefaultBaseURL).
func NewClient(baseURL string, sender Sender) Client {
	return &apiClient{baseURL: strings.TrimRight(baseURL, "/"), sender: sender}
}

// ZonesURL builds the active-zone lookup for name. The query string order is part of the wire contract.
func ZonesURL(baseURL, name string) string {
	return fmt.Sprintf("%s/zones?name=%s&status=active&page=1&per_page=20&order=status&direction=desc&match=all",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(name))
}

func PurgeURL(baseURL, zoneID string) string {
	return fmt.Sprintf("%s/zones/%s/purge_cache", strings.TrimRight(baseURL, "/"), url.PathEscape(zoneID))
}

func (c *apiClient) ListZones(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := ensureTimeout(ctx)
	defer cancel()

	return c.sender.Send(ctx, http.MethodGet, ZonesURL(c.baseURL, name), nil)
}

// PurgeCache sends req as a DELETE, the method this API integration has always used.
func (c *apiClient) PurgeCache(ctx context.Context, zoneID string, req cloudflare.PurgeCacheRequest) ([]byte, error) {
	if strings.TrimSpace(zoneID) == "" {
		return nil, fmt.Errorf("%w: zone id is empty", ErrConfiguration)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal purge request: %w", err)
	}

	ctx, cancel := ensureTimeout(ctx)
	defer cancel()

	return c.sender.Send(ctx, http.MethodDelete, PurgeURL(c.baseURL, zoneID), body)
}

func ensureTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 30*time.Second)
}
