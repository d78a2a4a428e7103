package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	l := New()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unlock, err := l.Lock(context.Background(), "user:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.Len())
}

func TestLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := New()
	_, unlockA, err := l.Lock(context.Background(), "user:a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, unlockB, err := l.Lock(ctx, "user:b")
	require.NoError(t, err)
	unlockB()
}

func TestLocker_Reentrant(t *testing.T) {
	l := New()
	ctx, unlock, err := l.Lock(context.Background(), "coupon:X")
	require.NoError(t, err)

	inner, innerUnlock, err := l.Lock(ctx, "coupon:X")
	require.NoError(t, err)
	assert.Equal(t, ctx, inner)
	innerUnlock()

	assert.Equal(t, 1, l.Len(), "inner unlock must not release the outer hold")
	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestLocker_ContextCancelled(t *testing.T) {
	l := New()
	_, unlock, err := l.Lock(context.Background(), "user:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, second, err := l.Lock(ctx, "user:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, second)

	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestLocker_UnlockIsIdempotent(t *testing.T) {
	l := New()
	_, unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	_, unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}
