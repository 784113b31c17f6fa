package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestStart_SweepsUntilCancelled(t *testing.T) {
	s := &countingSweeper{err: errors.New("locked")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Start(ctx, s, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestOnce(t *testing.T) {
	s := &countingSweeper{}
	Once(context.Background(), s)
	assert.Equal(t, int32(1), s.calls.Load())
}
