package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/cache"
	"github.com/pricelens/core/internal/logging"
)

func TestNewWithEmptyURLDisablesHint(t *testing.T) {
	log := logging.New(logging.Config{})
	hint := cache.New("", log)
	assert.False(t, hint.Enabled())
	assert.False(t, hint.TryAcquire(context.Background(), "k", time.Second))
	hint.Release(context.Background(), "k")
	assert.NoError(t, hint.Close())
}

func TestNewWithUnparseableURLDisablesHint(t *testing.T) {
	log := logging.New(logging.Config{})
	hint := cache.New("not a url", log)
	assert.False(t, hint.Enabled())
}

func TestNilHintIsSafeToUse(t *testing.T) {
	var hint *cache.Hint
	assert.False(t, hint.Enabled())
	assert.False(t, hint.TryAcquire(context.Background(), "k", time.Second))
	hint.Release(context.Background(), "k")
	assert.NoError(t, hint.Close())
}
