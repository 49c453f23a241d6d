// Package cache wraps the Valkey client used throughout this module: the
// scope cache (§4.2), webhook/outbound dedup keys (§3/§5), per-conversation
// advisory locks (§5), and sliding-window rate limiters (§4.9).
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const DefaultConnectTimeout = 5 * time.Second

type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration
}

// Client wraps the valkey-go client with application-specific helpers. One
// Client is constructed at startup and shared across all requests — it is
// safe for concurrent use, unlike the per-request connections a naive
// implementation might open.
type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

func NewClient(cfg Config) (*Client, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: create client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("cache: ping (timeout %v): %w", timeout, err)
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}

	return &Client{inner: inner, keyPrefix: prefix}, nil
}

func (c *Client) Inner() valkeylib.Client { return c.inner }

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key constructs a prefixed key from the given parts, e.g.
// Key("scopes", tenantUserID, "v3") -> "conversa:scopes:<id>:v3".
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	key := c.keyPrefix
	for i, p := range parts {
		key += p
		if i < len(parts)-1 {
			key += ":"
		}
	}
	return key
}

func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

func (c *Client) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return c.Ping(ctx) == nil
}

func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}

// Get returns the string value at key, or ("", cache.ErrMiss) if absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	resp := c.inner.Do(ctx, c.inner.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if IsNil(err) {
			return "", ErrMiss
		}
		return "", err
	}
	return resp.ToString()
}

// SetEx sets key=value with an expiry.
func (c *Client) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.inner.Do(ctx, c.inner.B().Set().Key(key).Value(value).Ex(ttl).Build()).Error()
}

// SetNX sets key=value only if key does not already exist, returning true
// on success. Used for the per-conversation advisory lock (§5) and for
// idempotent dedup-key inserts (§3).
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	resp := c.inner.Do(ctx, c.inner.B().Set().Key(key).Value(value).Nx().Ex(ttl).Build())
	if err := resp.Error(); err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Del removes a key, e.g. to release an advisory lock.
func (c *Client) Del(ctx context.Context, key string) error {
	return c.inner.Do(ctx, c.inner.B().Del().Key(key).Build()).Error()
}

// Incr atomically increments key and returns the new value, setting ttl on
// the first write (the counter doesn't already exist). Used for scope
// version counters (§4.2) and sliding-window rate limit buckets (§4.9).
func (c *Client) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	resp := c.inner.Do(ctx, c.inner.B().Incr().Key(key).Build())
	if err := resp.Error(); err != nil {
		return 0, err
	}
	n, err := resp.ToInt64()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttl > 0 {
		_ = c.inner.Do(ctx, c.inner.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()).Error()
	}
	return n, nil
}

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = fmt.Errorf("cache: key not found")
