package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/gglounge/internal/clock"
	"github.com/smallbiznis/gglounge/internal/config"
	"github.com/smallbiznis/gglounge/internal/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type sweepFixture struct {
	db      *gorm.DB
	runner  *saga.Runner
	clock   *clock.FakeClock
	sched   *Scheduler
	applied int
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&saga.StepRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &sweepFixture{
		db:     db,
		runner: saga.NewRunner(saga.Params{DB: db, Log: zap.NewNop(), GenID: node}),
		clock:  clock.NewFakeClock(time.Now()),
	}
	f.runner.Register("touch", func(context.Context, *gorm.DB, datatypes.JSONMap) error {
		f.applied++
		return nil
	})

	f.sched, err = New(Params{
		Log:    zap.NewNop(),
		Clock:  f.clock,
		Saga:   f.runner,
		Locker: NewJobLocker(nil),
		Config: Config{SagaGrace: time.Minute},
	})
	require.NoError(t, err)
	return f
}

func (f *sweepFixture) record(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return f.runner.Record(context.Background(), tx, key, []saga.Step{{Name: "touch", Handler: "touch"}})
	}))
}

func TestSagaSweepWaitsForGracePeriod(t *testing.T) {
	f := newSweepFixture(t)
	f.record(t, "session:1:create")

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 0, f.applied)

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 1, f.applied)

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 1, f.applied)
}

func TestSagaSweepIgnoresOtherSagas(t *testing.T) {
	f := newSweepFixture(t)
	f.record(t, "import:1:rows")

	f.clock.Advance(time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 0, f.applied)
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	token, ok, err := f.sched.locker.TryLock(ctx, lockKeyPrefix+JobSagaSweep, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	called := false
	err = f.sched.runJob(ctx, JobSagaSweep, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)

	require.NoError(t, f.sched.locker.Release(ctx, lockKeyPrefix+JobSagaSweep, token))
	err = f.sched.runJob(ctx, JobSagaSweep, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	f := newSweepFixture(t)
	f.sched.cfg.JobTimeout = 5 * time.Millisecond

	err := f.sched.runJob(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
}

func TestRunJobWrapsErrors(t *testing.T) {
	f := newSweepFixture(t)
	boom := errors.New("boom")

	err := f.sched.runJob(context.Background(), "broken", func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProvideConfigFallsBackToDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{Scheduler: config.SchedulerConfig{Enabled: true, GraceSeconds: 30}})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.SagaGrace)
	assert.Equal(t, DefaultConfig().RunInterval, cfg.RunInterval)
	assert.Equal(t, DefaultConfig().SagaBatchSize, cfg.SagaBatchSize)
	assert.Equal(t, DefaultConfig().LockTTL, cfg.LockTTL)
}
