package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
	"github.com/MrSnakeDoc/dashsync/internal/kv"
	"github.com/MrSnakeDoc/dashsync/internal/logger"
	"github.com/MrSnakeDoc/dashsync/internal/persist"
	"github.com/MrSnakeDoc/dashsync/internal/store"
)

type countingSnapshotter struct {
	calls atomic.Int32
	err   error
}

func (c *countingSnapshotter) Snapshot(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestSnapshotSchedulerTicks(t *testing.T) {
	target := &countingSnapshotter{}
	s := NewSnapshotScheduler(target, logger.New("error", false), 20*time.Millisecond)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestSnapshotSchedulerFinalSnapshotOnStop(t *testing.T) {
	target := &countingSnapshotter{}
	s := NewSnapshotScheduler(target, logger.New("error", false), time.Hour)
	s.Start(context.Background())

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), target.calls.Load())

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestSnapshotSchedulerReportsFinalFailure(t *testing.T) {
	target := &countingSnapshotter{err: errors.New("disk full")}
	s := NewSnapshotScheduler(target, logger.Nop(), time.Hour)
	s.Start(context.Background())

	assert.Error(t, s.Stop(context.Background()))
}

func TestSnapshotSchedulerRecoverableState(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory(0)
	st := store.New(nil)
	p := persist.New(backend, st, logger.Nop())

	s := NewSnapshotScheduler(p, logger.Nop(), time.Hour)
	s.Start(ctx)
	_, err := st.AddTodo("survive teardown")
	require.NoError(t, err)
	require.NoError(t, s.Stop(ctx))

	fresh := store.New(nil)
	ok, err := persist.New(backend, fresh, logger.Nop()).RecoverFromSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "survive teardown", fresh.Todos()[0].Text)
	assert.Equal(t, 1, fresh.Count()[domain.KindTodos])
}
