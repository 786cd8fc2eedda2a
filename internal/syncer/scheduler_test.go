package syncer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// recordingRunner counts passes and can hold one open until released.
type recordingRunner struct {
	calls   atomic.Int32
	began   chan struct{}
	release chan struct{}
	err     error
}

var _ SyncRunner = (*recordingRunner)(nil)

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{began: make(chan struct{}, 8)}
}

func (r *recordingRunner) SyncAll(_ context.Context) error {
	r.calls.Add(1)
	select {
	case r.began <- struct{}{}:
	default:
	}
	if r.release != nil {
		<-r.release
	}
	return r.err
}

func waitForPass(t *testing.T, runner *recordingRunner) {
	t.Helper()
	select {
	case <-runner.began:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sync pass to start")
	}
}

func TestScheduler_FirstPassRunsImmediately(t *testing.T) {
	runner := newRecordingRunner()
	scheduler := NewScheduler(runner, time.Hour, zap.NewNop())

	scheduler.Start()
	scheduler.Start() // second Start is a no-op
	waitForPass(t, runner)
	scheduler.Stop()

	assert.Equal(t, int32(1), runner.calls.Load())
	assert.False(t, scheduler.Syncing())
}

func TestScheduler_TriggerRunsExtraPass(t *testing.T) {
	runner := newRecordingRunner()
	scheduler := NewScheduler(runner, time.Hour, zap.NewNop())

	scheduler.Start()
	waitForPass(t, runner)

	assert.True(t, scheduler.Trigger())
	waitForPass(t, runner)
	scheduler.Stop()

	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestScheduler_TriggerQueueHoldsOne(t *testing.T) {
	scheduler := NewScheduler(newRecordingRunner(), time.Hour, zap.NewNop())

	assert.True(t, scheduler.Trigger())
	assert.False(t, scheduler.Trigger(), "a second trigger has nowhere to queue")
}

func TestScheduler_SkipsOverlappingPass(t *testing.T) {
	runner := newRecordingRunner()
	runner.release = make(chan struct{})
	scheduler := NewScheduler(runner, time.Hour, zap.NewNop())

	scheduler.Start()
	waitForPass(t, runner)
	assert.True(t, scheduler.Syncing())

	// A pass requested while one is in flight is dropped, not queued up.
	scheduler.runOnce()
	assert.Equal(t, int32(1), runner.calls.Load())

	close(runner.release)
	scheduler.Stop()
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.False(t, scheduler.Syncing())
}

func TestScheduler_StopWaitsForInFlightPass(t *testing.T) {
	runner := newRecordingRunner()
	runner.release = make(chan struct{})
	scheduler := NewScheduler(runner, time.Hour, zap.NewNop())

	scheduler.Start()
	waitForPass(t, runner)

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a pass was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the pass finished")
	}
	assert.False(t, scheduler.Syncing())
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(newRecordingRunner(), time.Hour, zap.NewNop())

	scheduler.Stop()
	scheduler.Stop()
}

func TestScheduler_IntervalFires(t *testing.T) {
	runner := newRecordingRunner()
	scheduler := NewScheduler(runner, 20*time.Millisecond, zap.NewNop())

	scheduler.Start()
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	scheduler.Stop()
}

func TestScheduler_FailedPassKeepsLoopAlive(t *testing.T) {
	runner := newRecordingRunner()
	runner.err = assert.AnError
	scheduler := NewScheduler(runner, time.Hour, zap.NewNop())

	scheduler.Start()
	waitForPass(t, runner)

	assert.True(t, scheduler.Trigger())
	waitForPass(t, runner)
	scheduler.Stop()

	assert.Equal(t, int32(2), runner.calls.Load())
}
