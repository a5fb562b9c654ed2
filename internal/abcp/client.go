// Package abcp talks to the ABCP parts-pricing API: article search and the
// distributor directory. Failures never leave this package as errors; they
// become empty results plus a warning event.
package abcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tender/internal"
	"tender/internal/config"
)

type Client struct {
	cfg        config.ABCPConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	events     internal.EventSink
}

// apiError is the object the API returns instead of an array on failure.
type apiError struct {
	ErrorCode    json.Number `json:"errorCode"`
	ErrorMessage string      `json:"errorMessage"`
}

func NewClient(cfg config.ABCPConfig, events internal.EventSink) *Client {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if events == nil {
		events = internal.Discard
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		events:     events,
	}
}

// Search returns the offers for one request. Transport errors, non-200
// statuses, error objects and any non-array body all yield nil.
func (c *Client) Search(ctx context.Context, req internal.TenderRequest, profileID string) []internal.Offer {
	params := url.Values{}
	params.Set("number", req.Article)
	params.Set("brand", req.Brand)
	params.Set("disableFiltering", "1")
	params.Set("withOutAnalogs", "0")
	params.Set("useOnlineStocks", "1")
	if strings.TrimSpace(profileID) != "" {
		params.Set("profileId", profileID)
	}

	items, err := c.fetchList(ctx, c.cfg.SearchPath, params)
	if err != nil {
		c.warn(fmt.Sprintf("search %s %s: %v", req.Brand, req.Article, err))
		return nil
	}

	offers := make([]internal.Offer, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		offers = append(offers, internal.Offer(m))
	}
	return offers
}

func (c *Client) fetchList(ctx context.Context, endpoint string, params url.Values) ([]any, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userlogin", c.cfg.UserLogin)
	q.Set("userpsw", c.cfg.UserPassword)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, redact(err, c.cfg.UserPassword)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return decodeList(body)
}

func decodeList(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.ErrorCode != "" || apiErr.ErrorMessage != "") {
			return nil, fmt.Errorf("api error %s: %s", apiErr.ErrorCode, apiErr.ErrorMessage)
		}
		return nil, errors.New("unexpected object response")
	default:
		return nil, fmt.Errorf("unexpected response type %T", payload)
	}
}

func (c *Client) warn(msg string) {
	c.events.Emit(internal.Event{Kind: internal.EventWarning, Message: msg})
}

// redact keeps the password hash out of logged URLs.
func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(secret), "***"))
}
