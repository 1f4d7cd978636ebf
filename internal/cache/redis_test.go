package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectParsesURL(t *testing.T) {
	client, err := Connect(context.Background(), "redis://:pw@cache.internal:6380/2")
	require.NoError(t, err)
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
}

func TestConnectAcceptsHostPort(t *testing.T) {
	client, err := Connect(context.Background(), "localhost:6379")
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "localhost:6379", client.Options().Addr)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "redis://host:notaport/x")
	assert.Error(t, err)
}

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "profile:abc", profileKey("abc"))
	c := NewProfileCache(nil, time.Minute)
	assert.Equal(t, time.Minute, c.ttl)
}
