package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptodash/internal/infrastructure"
	"cryptodash/internal/shared/testutil"
)

type countingRefresher struct {
	calls   atomic.Int32
	traceID atomic.Value
}

func (c *countingRefresher) Refresh(ctx context.Context) int {
	c.calls.Add(1)
	c.traceID.Store(infrastructure.GetTraceID(ctx))
	return 2
}

func TestScheduler_RunNow(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	ref := &countingRefresher{}
	s := New(ref, nil, logger)

	s.RunNow()

	assert.Equal(t, int32(1), ref.calls.Load())
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "scheduled refresh completed")
	assert.True(t, logs.ContainsAttr("dropped", int64(2)))

	traceID, _ := ref.traceID.Load().(string)
	require.NotEmpty(t, traceID)
	assert.True(t, logs.ContainsAttr("trace_id", traceID))

	s.RunNow()
	assert.NotEqual(t, traceID, ref.traceID.Load(), "each run is traced separately")
}

func TestScheduler_Register(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("empty spec is idle", func(t *testing.T) {
		s := New(&countingRefresher{}, nil, logger)
		require.NoError(t, s.Register(""))
		assert.True(t, s.Next().IsZero())
	})

	t.Run("invalid spec", func(t *testing.T) {
		s := New(&countingRefresher{}, nil, logger)
		assert.Error(t, s.Register("every tuesday"))
	})

	t.Run("next run is scheduled once started", func(t *testing.T) {
		s := New(&countingRefresher{}, nil, logger)
		require.NoError(t, s.Register("0 6 * * *"))
		s.Start()
		defer s.Stop(context.Background())

		next := s.Next()
		assert.False(t, next.IsZero())
		assert.Equal(t, 6, next.Hour())
		assert.WithinDuration(t, time.Now(), next, 24*time.Hour+time.Minute)
	})
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	s := New(&countingRefresher{}, nil, logger)

	s.Start()
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)
}
