package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// RecreateIndex deletes the index if present and creates it with the given
// mapping. Used by the loader; the API server assumes the index exists.
func (c *Client) RecreateIndex(ctx context.Context, index string, mapping any) error {
	del, err := c.es.Indices.Delete(
		[]string{index},
		c.es.Indices.Delete.WithContext(ctx),
		c.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", index, err)
	}
	if err := drain(del.Body); err != nil {
		return err
	}
	if del.IsError() {
		return fmt.Errorf("delete index %s: %s", index, del.Status())
	}

	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("create index %s: %s: %s", index, res.Status(), string(body))
	}
	return nil
}

// IndexDocument stores a single document under the given id.
func (c *Client) IndexDocument(ctx context.Context, index, id string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := c.es.Index(
		index,
		bytes.NewReader(payload),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index document %s: %s: %s", id, res.Status(), string(body))
	}
	return nil
}

func drain(body io.ReadCloser) error {
	defer body.Close()
	if _, err := io.Copy(io.Discard, body); err != nil {
		return fmt.Errorf("drain response body: %w", err)
	}
	return nil
}
