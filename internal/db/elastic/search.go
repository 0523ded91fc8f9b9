package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Hit is one search result as returned by the index, with the document
// source left raw for the caller to decode.
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// searchEnvelope is the subset of the search response body we read.
type searchEnvelope struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// Search executes a raw search body against an index and returns the hits
// in index order. Zero matches yield an empty slice, not an error.
func (c *Client) Search(ctx context.Context, index string, body any) ([]Hit, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s: %s", res.Status(), string(data))
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return envelope.Hits.Hits, nil
}
