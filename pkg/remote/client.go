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

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/config"
)

// Client talks to the bus directory and delay estimation endpoints
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string

	MaxRetries      int
	InitialInterval time.Duration
}

func NewClient(cfg config.RemoteConfig) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.Timeout.Duration},
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// StatusError is returned for any non-2xx reply
type StatusError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

func newStatusError(endpoint string, statusCode int, payload []byte) *StatusError {
	statusError := &StatusError{Endpoint: endpoint, StatusCode: statusCode}

	var body struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(payload, &body) == nil {
		switch detail := body.Detail.(type) {
		case string:
			statusError.Detail = detail
		case nil:
			statusError.Detail = body.Error
		default:
			encoded, _ := json.Marshal(detail)
			statusError.Detail = string(encoded)
		}
	}

	return statusError
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		exponential.InitialInterval = c.InitialInterval
	}

	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(retries)), ctx)
}

func (c *Client) do(ctx context.Context, method string, endpoint string, query url.Values, body any, out any) error {
	target := c.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var encodedBody []byte
	if body != nil {
		var err error
		encodedBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	operation := func() error {
		var reader io.Reader
		if encodedBody != nil {
			reader = bytes.NewReader(encodedBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if encodedBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusError := newStatusError(endpoint, resp.StatusCode, payload)
			if retryableStatus(resp.StatusCode) {
				return statusError
			}
			return backoff.Permanent(statusError)
		}

		if out == nil {
			return nil
		}

		if err := json.Unmarshal(payload, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", endpoint, err))
		}

		return nil
	}

	return backoff.RetryNotify(operation, c.newBackOff(ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("endpoint", endpoint).Str("wait", wait.String()).Msg("Retrying remote request")
	})
}
