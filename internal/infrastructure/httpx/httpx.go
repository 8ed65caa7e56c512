package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client is a JSON client for the service's API. Transport errors and
// 502/503/504 are retried with exponential backoff; every other status is
// returned to the caller with its decoded body.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	// MaxElapsed bounds the retries of a single call. Zero means 3s.
	MaxElapsed time.Duration
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 50 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second
	if c.MaxElapsed > 0 {
		exp.MaxElapsedTime = c.MaxElapsed
	}
	return backoff.WithContext(exp, ctx)
}

func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoJSON sends body (when non-nil) as JSON and decodes the response into out
// (when non-nil). It returns the final status code.
func (c *Client) DoJSON(ctx context.Context, method, path string, hdr http.Header, body, out any) (int, error) {
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, fmt.Errorf("encode: %w", err)
		}
	}

	var status int
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, vs := range hdr {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode
		if retryable(status) {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("server error %d", status)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode: %w", err))
		}
		return nil
	}
	err := backoff.Retry(op, c.backoff(ctx))
	return status, err
}

// WaitReady polls path until it answers 200.
func (c *Client) WaitReady(ctx context.Context, path string) error {
	status, err := c.DoJSON(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("not ready: status %d", status)
	}
	return nil
}
