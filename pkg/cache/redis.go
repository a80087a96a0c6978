package cache

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/smartsql-client/pkg/config"
)

// NewRedis connects to the session store. Timeouts are short because every
// CLI invocation waits on this ping before doing anything else.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := Addr(cfg)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session store redis %s unreachable: %w", addr, err)
	}
	return client, nil
}

// Addr renders host:port, defaulting to the local Redis port.
func Addr(cfg config.RedisConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// SessionKey scopes the session hash to one backend so logins against
// different deployments never overwrite each other.
func SessionKey(prefix, baseURL string) string {
	if prefix == "" {
		prefix = "smartsql:session"
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return prefix
	}
	return prefix + ":" + strings.ToLower(u.Host)
}
