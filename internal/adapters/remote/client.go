// Package remote talks to the shared multi-device table store over its REST
// interface: per-collection tables addressed by endpoint URL and access key,
// supporting timestamp-filtered selects and primary-key upserts.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout)
	return &Client{http: c, log: log}
}

// SelectNewer fetches rows whose cursor column is strictly greater than
// after, translated into local field naming.
func (c *Client) SelectNewer(ctx context.Context, collection domain.Collection, after time.Time) ([]domain.Row, error) {
	column := cursorColumn(collection)

	var rows []domain.Row
	err := c.retry(ctx, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("select", "*").
			SetQueryParam(column, "gt."+after.UTC().Format(time.RFC3339Nano)).
			SetQueryParam("order", column+".asc").
			Get("/rest/v1/" + string(collection))
		if err != nil {
			return fmt.Errorf("select %s: %w", collection, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return statusError(collection, resp)
		}
		rows = rows[:0]
		if err := json.Unmarshal(resp.Body(), &rows); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", collection, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLocalRow(collection, row))
	}
	return out, nil
}

// Upsert writes the batch by primary key. The server merges duplicates, so
// the call is all-or-nothing for the batch.
func (c *Client) Upsert(ctx context.Context, collection domain.Collection, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	payload := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, toRemoteRow(collection, row))
	}

	return c.retry(ctx, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
			SetBody(payload).
			Post("/rest/v1/" + string(collection))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", collection, err)
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return statusError(collection, resp)
		}
		return nil
	})
}

// Ping verifies the endpoint and key with a minimal read.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("select", "id").
		SetQueryParam("limit", "1").
		Get("/rest/v1/" + string(domain.CollectionPeople))
	if err != nil {
		return fmt.Errorf("ping remote: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ping remote: status %d", resp.StatusCode())
	}
	return nil
}

// retry runs op with capped exponential backoff. Client errors (4xx) are
// permanent; transport failures and server errors are worth another try.
func (c *Client) retry(ctx context.Context, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(exp, maxRetries), ctx))
}

func statusError(collection domain.Collection, resp *resty.Response) error {
	err := fmt.Errorf("%s: remote returned status %d", collection, resp.StatusCode())
	if code := resp.StatusCode(); code >= 400 && code < 500 {
		return backoff.Permanent(err)
	}
	return err
}

var _ ports.RemoteStore = (*Client)(nil)
