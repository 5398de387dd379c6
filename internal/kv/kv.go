// Package kv provides the key-value store adapter backed by Redis.
//
// Credentials are resolved from an ordered list of environment variables so
// the same binary runs against managed KV offerings and plain Redis without
// config changes. When no complete URL+token pair resolves, the adapter is
// unavailable: writes fail with apperr.ErrStoreUnconfigured and reads
// degrade to the disk fallback in the repository layer.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/clawfable/clawfable/internal/apperr"
)

// Ordered credential candidates. First non-empty value wins per list;
// both a URL and a token must resolve for the adapter to come up.
var (
	urlEnvCandidates   = []string{"CLAWFABLE_KV_URL", "KV_REST_API_URL", "KV_URL", "REDIS_URL"}
	tokenEnvCandidates = []string{"CLAWFABLE_KV_TOKEN", "KV_REST_API_TOKEN", "KV_TOKEN"}
)

// Client is the store contract the repositories depend on: single-key
// get/set/delete plus a pattern scan used only by the admin clear path.
type Client interface {
	// Get unmarshals the value at key into dest. A miss or an unparseable
	// value reports (false, nil); only transport failures return an error.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value at key as JSON.
	Set(ctx context.Context, key string, value any) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Keys returns all keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

type redisClient struct {
	rdb *redis.Client
}

// New connects to the store at the given URL. token is used as the password
// when the URL does not carry one; it may be empty for unauthenticated
// servers (tests).
func New(ctx context.Context, url, token string) (Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kv: parse url: %w", err)
	}
	if opts.Password == "" && token != "" {
		opts.Password = token
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("kv: connect: %w", err)
	}
	return &redisClient{rdb: rdb}, nil
}

func (c *redisClient) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Fail soft on a malformed record; the caller treats it as absent.
		return false, nil
	}
	return true, nil
}

func (c *redisClient) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

func (c *redisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kv: delete: %w", err)
	}
	return nil
}

func (c *redisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv: scan %s: %w", pattern, err)
	}
	return out, nil
}

func (c *redisClient) Close() error {
	return c.rdb.Close()
}

// Resolve returns the first complete URL+token pair from the environment.
func Resolve() (url, token string, ok bool) {
	url = firstEnv(urlEnvCandidates)
	token = firstEnv(tokenEnvCandidates)
	return url, token, url != "" && token != ""
}

func firstEnv(names []string) string {
	for _, name := range names {
		raw := strings.TrimSpace(os.Getenv(name))
		// Deployment tooling sometimes quotes values; strip one layer.
		if len(raw) >= 2 {
			if (raw[0] == '"' && raw[len(raw)-1] == '"') || (raw[0] == '\'' && raw[len(raw)-1] == '\'') {
				raw = strings.TrimSpace(raw[1 : len(raw)-1])
			}
		}
		if raw != "" {
			return raw
		}
	}
	return ""
}

var (
	openOnce   sync.Once
	openClient Client
	openErr    error
)

// Open resolves credentials and connects, at most once per process.
// The outcome, client or error, is cached for the process lifetime.
func Open(ctx context.Context) (Client, error) {
	openOnce.Do(func() {
		url, token, ok := Resolve()
		if !ok {
			openErr = apperr.ErrStoreUnconfigured
			return
		}
		openClient, openErr = New(ctx, url, token)
	})
	return openClient, openErr
}
