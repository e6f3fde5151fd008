package registry

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCachedLookup_NilRedisReturnsInner(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	inner := NewClient("http://registry.invalid", time.Second)

	decorated := NewCachedLookup(inner, nil, time.Hour, logger)
	assert.Same(t, inner, decorated)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "registry:npi:1234567890", cacheKey("1234567890"))
}
