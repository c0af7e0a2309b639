package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestBuffer(t *testing.T) (*AnswerBuffer, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return NewAnswerBuffer(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestBufferStartsEmpty(t *testing.T) {
	buf, _ := newTestBuffer(t)
	ctx := context.Background()

	all, err := buf.All(ctx, "a1")
	require.NoError(t, err)
	require.Empty(t, all)

	n, err := buf.AnsweredCount(ctx, "a1")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBufferEntriesAreIndependent(t *testing.T) {
	buf, _ := newTestBuffer(t)
	ctx := context.Background()

	require.NoError(t, buf.Set(ctx, "a1", "q1", "Paris", time.Minute))
	require.NoError(t, buf.Set(ctx, "a1", "q2", "London", time.Minute))
	require.NoError(t, buf.Set(ctx, "a1", "q1", "Berlin", time.Minute)) // overwrite

	all, err := buf.All(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"q1": "Berlin", "q2": "London"}, all)

	// A second attempt's buffer is untouched.
	other, err := buf.All(ctx, "a2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestAnsweredCountSkipsBlankAnswers(t *testing.T) {
	buf, _ := newTestBuffer(t)
	ctx := context.Background()

	require.NoError(t, buf.Set(ctx, "a1", "q1", "42", time.Minute))
	require.NoError(t, buf.Set(ctx, "a1", "q2", "   ", time.Minute))
	require.NoError(t, buf.Set(ctx, "a1", "q3", "", time.Minute))

	n, err := buf.AnsweredCount(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestBufferExpires(t *testing.T) {
	buf, mr := newTestBuffer(t)
	ctx := context.Background()

	require.NoError(t, buf.Set(ctx, "a1", "q1", "Paris", 30*time.Second))

	mr.FastForward(31 * time.Second)

	all, err := buf.All(ctx, "a1")
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestClearDropsOnlyThatAttempt(t *testing.T) {
	buf, _ := newTestBuffer(t)
	ctx := context.Background()

	require.NoError(t, buf.Set(ctx, "a1", "q1", "x", time.Minute))
	require.NoError(t, buf.Set(ctx, "a2", "q1", "y", time.Minute))

	require.NoError(t, buf.Clear(ctx, "a1"))

	gone, _ := buf.All(ctx, "a1")
	require.Empty(t, gone)
	kept, _ := buf.All(ctx, "a2")
	require.Equal(t, "y", kept["q1"])
}
