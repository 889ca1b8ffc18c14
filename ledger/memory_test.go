package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hawx.me/code/assert"
)

func TestMemoryConsume(t *testing.T) {
	assert := assert.Wrap(t)

	m := NewMemory()
	defer m.Close()

	ctx := context.Background()

	first, err := m.Consume(ctx, "abc", time.Minute)
	assert(err).Must.Nil()
	assert(first).True()

	again, err := m.Consume(ctx, "abc", time.Minute)
	assert(err).Must.Nil()
	assert(again).Equal(false)

	other, err := m.Consume(ctx, "def", time.Minute)
	assert(err).Must.Nil()
	assert(other).True()

	assert(m.Len()).Equal(2)
}

func TestMemoryConsumeAfterExpiry(t *testing.T) {
	assert := assert.Wrap(t)

	m := NewMemory()
	defer m.Close()

	ctx := context.Background()

	first, _ := m.Consume(ctx, "abc", 10*time.Millisecond)
	assert(first).True()

	time.Sleep(50 * time.Millisecond)

	again, _ := m.Consume(ctx, "abc", time.Minute)
	assert(again).True()
}

func TestMemoryConsumeConcurrently(t *testing.T) {
	assert := assert.Wrap(t)

	m := NewMemory()
	defer m.Close()

	var (
		wg    sync.WaitGroup
		wins  int32
		start = make(chan struct{})
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			if ok, _ := m.Consume(context.Background(), "abc", time.Minute); ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert(wins).Equal(int32(1))
}
