// Package elastic wraps the official Elasticsearch client with the small
// surface the recipe index needs: search, index provisioning and bulk load.
package elastic

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// Config holds Elasticsearch connection settings.
type Config struct {
	Addrs    []string
	Username string
	Password string
}

// Client is a thin wrapper over the Elasticsearch API client.
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates an Elasticsearch client.
func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addrs,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// WaitForReady pings the cluster until it responds or the timeout elapses.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
		if err == nil {
			defer res.Body.Close()
			if !res.IsError() {
				return nil
			}
			lastErr = fmt.Errorf("elasticsearch ping: %s", res.Status())
			res.Body.Close()
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("elasticsearch not ready after %s: %w", timeout, lastErr)
}
