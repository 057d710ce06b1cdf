// Package remote implements the HTTP client for the tab manager API. It is
// the only component that talks to the network besides the connectivity
// prober.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/barvenue/tabsync/internal/errors"
	"github.com/barvenue/tabsync/internal/models"
)

// Config holds client connection configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://pos.example.com/api".
	BaseURL string

	// APIKey, when set, is sent as a bearer token on every request.
	APIKey string

	// Timeout bounds each request end to end.
	Timeout time.Duration
}

// Client is an HTTP implementation of the sync.Remote contract.
type Client struct {
	config     Config
	httpClient *http.Client
	log        zerolog.Logger
}

// tabIDResponse is the body returned by the tab creation endpoint.
type tabIDResponse struct {
	ID json.Number `json:"id"`
}

// NewClient creates a Client. The base URL must be set; a zero timeout
// falls back to 10 seconds.
func NewClient(config Config, log zerolog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, apperrors.New(apperrors.ErrRemoteNotConfigured, "server base URL is not configured")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		log: log,
	}, nil
}

// AddExpense posts an expense to its tab.
func (c *Client) AddExpense(ctx context.Context, payload models.ExpensePayload) error {
	path := fmt.Sprintf("/tabs/%s/expenses", url.PathEscape(payload.Tab.String()))
	return c.post(ctx, path, payload)
}

// AddPayment posts a payment to its tab.
func (c *Client) AddPayment(ctx context.Context, payload models.PaymentPayload) error {
	path := fmt.Sprintf("/tabs/%s/payments", url.PathEscape(payload.Tab.String()))
	return c.post(ctx, path, payload)
}

// CreateTab opens a tab for a customer and returns the server-assigned id.
func (c *Client) CreateTab(ctx context.Context, customerID string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/tabs", map[string]string{"customerId": customerID})
	if err != nil {
		return "", err
	}

	var parsed tabIDResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.Wrap(apperrors.ErrRemoteFailed, "cannot parse tab creation response", err)
	}
	if parsed.ID.String() == "" {
		return "", apperrors.New(apperrors.ErrRemoteFailed, "tab creation response carries no id")
	}
	return parsed.ID.String(), nil
}

// FetchTab retrieves the full tab document for display.
func (c *Client) FetchTab(ctx context.Context, ref models.TabRef) (json.RawMessage, error) {
	path := fmt.Sprintf("/tabs/%s", url.PathEscape(ref.String()))
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	_, err := c.do(ctx, http.MethodPost, path, payload)
	return err
}

// do executes one request and returns the response body. Any transport
// failure or non-2xx status is reported as a remote error so callers can
// treat them uniformly as "try the queue instead".
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternal, "cannot encode request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "cannot build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRemoteFailed,
			fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRemoteFailed, "cannot read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("remote request rejected")
		return nil, apperrors.New(apperrors.ErrRemoteFailed,
			fmt.Sprintf("%s %s returned status %d: %s", method, path, resp.StatusCode, truncate(body, 200)))
	}

	return body, nil
}

func truncate(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
