package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	p := New(2)
	defer p.Close()
	require.Equal(t, 2, p.Size())

	var (
		inflight int32
		peak     int32
		wg       sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func() {
				n := atomic.AddInt32(&inflight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inflight, -1)
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	require.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestPool_DoWaitsForResult(t *testing.T) {
	p := New(1)
	defer p.Close()
	var v int
	require.NoError(t, p.Do(context.Background(), func() { v = 42 }))
	require.Equal(t, 42, v)
}

func TestPool_PanicBecomesError(t *testing.T) {
	p := New(1)
	defer p.Close()
	err := p.Do(context.Background(), func() { panic("bad html") })
	require.ErrorContains(t, err, "bad html")
	// worker 仍可继续工作
	require.NoError(t, p.Do(context.Background(), func() {}))
}

func TestPool_ClosedAndCanceled(t *testing.T) {
	p := New(1)
	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() {
			close(started)
			<-block
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := p.Do(ctx, func() { ran = true })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, ran)

	close(block)
	p.Close()
	p.Close()
	require.ErrorIs(t, p.Do(context.Background(), func() {}), ErrClosed)
}
