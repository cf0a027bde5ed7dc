// ABOUTME: Charm KV client wrapper for export session restoration info.
// ABOUTME: Provides thread-safe initialization and automatic cloud sync.
package charm

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

const (
	// DBName is the charm kv database holding session descriptors.
	DBName    = "healthexport"
	charmHost = "charm.2389.dev"
)

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

// kvStore is the subset of *kv.KV the client uses.
type kvStore interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
	IsReadOnly() bool
	Close() error
}

var _ kvStore = (*kv.KV)(nil)

type Client struct {
	kv       kvStore
	autoSync bool
	mu       sync.RWMutex
}

// InitClient initializes the global Charm client.
// Thread-safe; can be called multiple times.
func InitClient() (*Client, error) {
	clientOnce.Do(func() {
		if os.Getenv("CHARM_HOST") == "" {
			if err := os.Setenv("CHARM_HOST", charmHost); err != nil {
				clientErr = err
				return
			}
		}

		db, err := kv.OpenWithDefaultsFallback(DBName)
		if err != nil {
			clientErr = err
			return
		}

		globalClient = newClient(db)

		// Pull remote data on startup (skip in read-only mode)
		if !db.IsReadOnly() {
			_ = db.Sync()
		}
	})

	return globalClient, clientErr
}

func newClient(store kvStore) *Client {
	return &Client{kv: store, autoSync: true}
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

// syncIfEnabled calls Sync if autoSync is enabled.
func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

// SetAutoSync enables or disables automatic sync after writes.
// Bulk exports persist after every batch, so long runs usually disable it
// and sync once at the end.
func (c *Client) SetAutoSync(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoSync = enabled
}

// ID returns the Charm user ID for the current account.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Reset wipes local data and rebuilds from Charm Cloud.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// get returns the value stored under key.
func (c *Client) get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get([]byte(key))
}

// set stores a value with the given key.
func (c *Client) set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return fmt.Errorf("cannot write: database is locked by another process (MCP server?)")
	}

	if err := c.kv.Set([]byte(key), data); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// delete removes a key.
func (c *Client) delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv.IsReadOnly() {
		return fmt.Errorf("cannot write: database is locked by another process (MCP server?)")
	}

	if err := c.kv.Delete([]byte(key)); err != nil {
		return err
	}
	c.syncIfEnabled()
	return nil
}

// keysWithPrefix returns every key starting with prefix.
func (c *Client) keysWithPrefix(prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}

	var out []string
	prefixBytes := []byte(prefix)
	for _, key := range keys {
		if bytes.HasPrefix(key, prefixBytes) {
			out = append(out, string(key))
		}
	}
	return out, nil
}
