package history

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

func sampleEntry(id string) Entry {
	score := 72
	return Entry{
		ID:         id,
		CreatedAt:  time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC),
		Filename:   "call.mp3",
		Status:     StatusAnalyzed,
		Transcript: "hello",
		Analysis: &types.CallAnalysis{
			FinalSentiment: types.SentimentPositive,
			SentimentScore: &score,
			KeyIssues:      []string{"billing"},
			Outcome:        types.OutcomeResolved,
			Shape:          types.ShapeJSON,
		},
		Usage: types.Usage{PromptTokens: 10, ResponseTokens: 5},
	}
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return NewRedisStore(client, time.Hour), server
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStoreAppendPreservesOrderPerSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Append(ctx, "s1", sampleEntry("a")))
			require.NoError(t, store.Append(ctx, "s2", sampleEntry("x")))
			require.NoError(t, store.Append(ctx, "s1", sampleEntry("b")))

			got, err := store.List(ctx, "s1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, "a", got[0].ID)
			require.Equal(t, "b", got[1].ID)
			require.Equal(t, 72, *got[0].Analysis.SentimentScore)

			empty, err := store.List(ctx, "nobody")
			require.NoError(t, err)
			require.Empty(t, empty)
		})
	}
}

func TestStoreRequiresSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, store.Append(context.Background(), "", sampleEntry("a")), ErrNoSession)
			_, err := store.List(context.Background(), "")
			require.ErrorIs(t, err, ErrNoSession)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	e := sampleEntry("a")
	require.NoError(t, store.Append(ctx, "s", e))

	e.Analysis.KeyIssues[0] = "mutated by caller"
	got, err := store.List(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, "billing", got[0].Analysis.KeyIssues[0])

	got[0].Analysis.KeyIssues[0] = "mutated by reader"
	again, err := store.List(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, "billing", again[0].Analysis.KeyIssues[0])
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(ctx, "s", sampleEntry("e"))
		}()
	}
	wg.Wait()
	got, err := store.List(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 50)
}

func TestRedisStoreSetsExpiry(t *testing.T) {
	store, server := newRedisStore(t)
	require.NoError(t, store.Append(context.Background(), "s", sampleEntry("a")))
	require.Equal(t, time.Hour, server.TTL(keyPrefix+"s"))

	server.FastForward(2 * time.Hour)
	got, err := store.List(context.Background(), "s")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestWaitForRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := NewRedisClient("redis://" + server.Addr())
	defer client.Close()
	require.NoError(t, WaitForRedis(context.Background(), client, time.Second, logger.Discard()))
}

func TestWaitForRedisGivesUp(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1")
	defer client.Close()
	err := WaitForRedis(context.Background(), client, 300*time.Millisecond, logger.Discard())
	require.ErrorContains(t, err, "ping redis")
}
