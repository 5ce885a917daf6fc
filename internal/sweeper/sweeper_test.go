package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeEvictor struct {
	calls atomic.Int64
	err   error
}

func (f *fakeEvictor) EvictExpired(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 0, f.err
}

func TestRunSweepsOnInterval(t *testing.T) {
	ev := &fakeEvictor{}
	s := New(ev, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, ev.calls.Load(), int64(2))
}

func TestRunSurvivesEvictionErrors(t *testing.T) {
	ev := &fakeEvictor{err: errors.New("db down")}
	s := New(ev, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	assert.GreaterOrEqual(t, ev.calls.Load(), int64(2), "errors must not stop the loop")
}
