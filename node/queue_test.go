package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueIsFIFO(t *testing.T) {
	q := newQueue[int]()
	for i := range 100 {
		q.Push(i)
	}
	assert.Equal(t, 100, q.Len())
	for i := range 100 {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Zero(t, q.Len())
}

func TestQueuePopWaits(t *testing.T) {
	q := newQueue[string]()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Push("late")
	}()
	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestQueuePopHonoursContext(t *testing.T) {
	q := newQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
