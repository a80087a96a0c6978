package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/smartsql-client/pkg/config"
)

func TestAddrDefaults(t *testing.T) {
	assert.Equal(t, "localhost:6379", Addr(config.RedisConfig{}))
	assert.Equal(t, "cache:6380", Addr(config.RedisConfig{Host: "cache", Port: 6380}))
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "smartsql:session:api.example.com", SessionKey("", "https://API.example.com/api"))
	assert.Equal(t, "lms:localhost:8000", SessionKey("lms", "http://localhost:8000/api"))
	assert.Equal(t, "lms", SessionKey("lms", "not a url"))
}
