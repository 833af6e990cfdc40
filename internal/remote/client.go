// Package remote is the adapter for the anonymous-paste backend that holds
// encrypted sync blobs.
//
// The adapter knows nothing about the payload — it publishes and fetches
// opaque strings (pure ciphertext). Any backend that can store a string under
// a fresh unguessable identifier and return it later will do; cmd/pasted in
// this repository is one such backend, the public paste services are another.
//
// The backend's retention policy is outside our control: a published blob can
// disappear at any time. Fetch treats that as a normal not-found failure, not
// a bug.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/momentum-sync/internal/apperror"
)

const (
	// maxBlobSize caps how much of a fetched body we are willing to read.
	// Envelopes for even years of daily records are well under 1 MB.
	maxBlobSize = 8 << 20

	// DefaultQuota leaves a safety margin of 5 below the 60-per-hour quota
	// the anonymous backends document.
	DefaultQuota = 55
)

// Config holds the adapter's connection settings.
type Config struct {
	// BaseURL of the paste backend, e.g. "https://paste.example.com".
	BaseURL string
	// Token optionally authenticates requests. Backends grant token-bearing
	// callers a higher quota; raise Quota accordingly when setting it.
	Token string
	// Quota is the number of requests allowed per Window.
	Quota int
	// Window is the quota window length.
	Window time.Duration
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns the settings for an unauthenticated client.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Quota:   DefaultQuota,
		Window:  time.Hour,
		Timeout: 30 * time.Second,
	}
}

// PublishResult identifies a freshly stored blob.
type PublishResult struct {
	BlobID string `json:"id"`
	URL    string `json:"url"`
	// DeleteToken authorizes early deletion of the blob, letting the
	// exporting device purge its ciphertext instead of waiting out the
	// backend's retention window. Empty if the backend doesn't support it.
	DeleteToken string `json:"deleteToken,omitempty"`
}

// Client publishes and retrieves opaque ciphertext blobs.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewClient creates a Client. When cfg.Token is set, requests carry it as a
// Bearer token via an oauth2 transport — the same token shape the hosted
// paste/gist APIs take.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Quota <= 0 {
		cfg.Quota = DefaultQuota
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(context.Background(), src)
		hc.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		limiter: NewRateLimiter(cfg.Quota, cfg.Window),
		logger:  logger,
	}
}

// Publish stores ciphertext under a new anonymous identifier.
func (c *Client) Publish(ctx context.Context, ciphertext string) (*PublishResult, error) {
	if err := c.limiter.Allow(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/pastes", strings.NewReader(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("remote: building publish request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Network("publishing sync data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.statusError("publish", resp)
	}

	var result PublishResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBlobSize)).Decode(&result); err != nil {
		return nil, apperror.Network("decoding publish response", err)
	}
	if result.BlobID == "" {
		return nil, apperror.Network("decoding publish response",
			fmt.Errorf("backend returned no blob id"))
	}

	c.logger.Info("blob published", slog.String("blobId", result.BlobID))
	return &result, nil
}

// Fetch retrieves a previously published blob. A blob the backend no longer
// has — unknown id or purged by retention — fails with apperror.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, blobID string) (string, error) {
	if err := c.limiter.Allow(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/pastes/"+blobID, nil)
	if err != nil {
		return "", fmt.Errorf("remote: building fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperror.Network("downloading sync data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError("fetch", resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize))
	if err != nil {
		return "", apperror.Network("reading sync data", err)
	}

	return string(body), nil
}

// Delete removes a blob early using the deletion token returned by Publish.
// Deleting a blob that is already gone succeeds — the goal state is "absent".
func (c *Client) Delete(ctx context.Context, blobID, deleteToken string) error {
	if err := c.limiter.Allow(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/pastes/"+blobID, nil)
	if err != nil {
		return fmt.Errorf("remote: building delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+deleteToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Network("deleting sync data", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		return nil
	default:
		return c.statusError("delete", resp)
	}
}

// RateLimitStatus is the adapter's budget snapshot, for UI display.
type RateLimitStatus struct {
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"resetIn"`
	Limited   bool          `json:"limited"`
}

// Status reports the local rate-limit state without consuming a slot.
func (c *Client) Status() RateLimitStatus {
	remaining, resetIn := c.limiter.Status()
	return RateLimitStatus{
		Remaining: remaining,
		ResetIn:   resetIn,
		Limited:   remaining == 0,
	}
}

// statusError maps a non-success HTTP status to a domain error kind.
func (c *Client) statusError(op string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return apperror.NotFound("sync blob", lastPathSegment(resp.Request.URL.Path))
	case http.StatusTooManyRequests, http.StatusForbidden:
		// The backend got there before our local budget did. Trust its
		// Retry-After when present, otherwise assume a full window.
		retryAfter := time.Hour
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return apperror.RateLimited(retryAfter)
	default:
		return apperror.Network(op, fmt.Errorf("backend returned %s", resp.Status))
	}
}

func lastPathSegment(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
