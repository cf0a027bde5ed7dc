// ABOUTME: Export descriptor store backed by Charm KV.
// ABOUTME: Lets paused exports resume on any machine signed into the same Charm account.
package charm

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/healthexport/internal/export"
)

var (
	_ export.DescriptorStore  = (*Client)(nil)
	_ export.DescriptorLister = (*Client)(nil)
)

// Load returns nil, nil when key is absent.
func (c *Client) Load(_ context.Context, key string) (*export.Descriptor, error) {
	raw, err := c.get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get descriptor %s: %w", key, err)
	}
	d, err := export.DecodeDescriptor(raw)
	if err != nil {
		return nil, fmt.Errorf("decode descriptor %s: %w", key, err)
	}
	return d, nil
}

// Store writes d under key.
func (c *Client) Store(ctx context.Context, key string, d export.Descriptor) error {
	raw, err := export.EncodeDescriptor(d)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.set(key, raw); err != nil {
		return fmt.Errorf("store descriptor %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *Client) Delete(_ context.Context, key string) error {
	if err := c.delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete descriptor %s: %w", key, err)
	}
	return nil
}

// Keys lists descriptor keys in sorted order.
func (c *Client) Keys(_ context.Context) ([]string, error) {
	keys, err := c.keysWithPrefix(export.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list descriptors: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
