package seencache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/store/memory"
)

// fakeClient implements Client against an in-process set.
type fakeClient struct {
	members map[string]bool
	fail    bool
	adds    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{members: map[string]bool{}}
}

func (f *fakeClient) SIsMember(ctx context.Context, _ string, member any) *redis.BoolCmd {
	if f.fail {
		return redis.NewBoolResult(false, errors.New("connection refused"))
	}
	return redis.NewBoolResult(f.members[member.(string)], nil)
}

func (f *fakeClient) SAdd(ctx context.Context, _ string, members ...any) *redis.IntCmd {
	if f.fail {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	for _, m := range members {
		f.members[m.(string)] = true
		f.adds++
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeClient) Close() error { return nil }

func TestHasSeenCacheHitSkipsStore(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.members["https://a.example/1"] = true
	s := New(client, memory.New(), zap.NewNop())

	seen, err := s.HasSeen(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestHasSeenMissBackfillsFromStore(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	inner := memory.New()
	require.NoError(t, inner.MarkSeen(context.Background(), "https://a.example/1", time.Now().UTC()))

	s := New(client, inner, zap.NewNop())

	seen, err := s.HasSeen(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	assert.True(t, seen)
	// The next lookup is answered by the cache.
	assert.True(t, client.members["https://a.example/1"])
}

func TestHasSeenDegradesOnRedisError(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.fail = true
	inner := memory.New()
	require.NoError(t, inner.MarkSeen(context.Background(), "https://a.example/1", time.Now().UTC()))

	s := New(client, inner, zap.NewNop())

	seen, err := s.HasSeen(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMarkSeenWritesThrough(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	inner := memory.New()
	s := New(client, inner, zap.NewNop())

	require.NoError(t, s.MarkSeen(context.Background(), "https://a.example/1", time.Now().UTC()))

	seen, err := inner.HasSeen(context.Background(), "https://a.example/1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.True(t, client.members["https://a.example/1"])
}
