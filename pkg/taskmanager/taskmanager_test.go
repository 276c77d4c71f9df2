package taskmanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitFinished(t *testing.T, tm *TaskManager, id uuid.UUID) Task {
	t.Helper()
	var task Task
	require.Eventually(t, func() bool {
		var err error
		task, err = tm.Get(id)
		return err == nil && task.Status.Finished()
	}, 2*time.Second, 10*time.Millisecond)
	return task
}

func TestTaskManager_CompletesTask(t *testing.T) {
	tm := New(Config{MaxTasks: 2}, zap.NewNop())

	id, err := tm.Submit(context.Background(), "documentation", "owner-1", func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})
	require.NoError(t, err)

	task := waitFinished(t, tm, id)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, "done", task.Result)
	assert.Equal(t, "owner-1", task.OwnerID)
	assert.Equal(t, "documentation", task.Kind)
	assert.Empty(t, task.Error)
}

func TestTaskManager_FailedTask(t *testing.T) {
	tm := New(Config{}, zap.NewNop())

	id, err := tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("stage writer failed")
	})
	require.NoError(t, err)

	task := waitFinished(t, tm, id)
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.Equal(t, "stage writer failed", task.Error)
	assert.Nil(t, task.Result)
}

func TestTaskManager_RequestContextCancellationDoesNotStopTask(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	reqCtx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	id, err := tm.Submit(reqCtx, "documentation", "", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return 1, ctx.Err()
	})
	require.NoError(t, err)

	<-started
	cancel()
	close(release)

	task := waitFinished(t, tm, id)
	assert.Equal(t, TaskStatusCompleted, task.Status)
}

func TestTaskManager_MaxTasks(t *testing.T) {
	tm := New(Config{MaxTasks: 1}, zap.NewNop())
	release := make(chan struct{})

	id, err := tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	_, err = tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrTooManyTasks)

	close(release)
	waitFinished(t, tm, id)

	_, err = tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.NoError(t, err)
}

func TestTaskManager_GetReturnsCopy(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	id, err := tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)

	task := waitFinished(t, tm, id)
	task.Status = TaskStatusFailed

	again, err := tm.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, again.Status)
}

func TestTaskManager_GetUnknown(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	_, err := tm.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskManager_Cleanup(t *testing.T) {
	tm := New(Config{}, zap.NewNop())
	id, err := tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)
	waitFinished(t, tm, id)

	assert.Equal(t, 0, tm.Cleanup(time.Hour))
	assert.Equal(t, 1, tm.Cleanup(0))

	_, err = tm.Get(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskManager_Shutdown(t *testing.T) {
	t.Run("waits for running tasks", func(t *testing.T) {
		tm := New(Config{}, zap.NewNop())
		id, err := tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
			time.Sleep(20 * time.Millisecond)
			return nil, nil
		})
		require.NoError(t, err)

		require.NoError(t, tm.Shutdown(context.Background()))
		task, err := tm.Get(id)
		require.NoError(t, err)
		assert.Equal(t, TaskStatusCompleted, task.Status)

		_, err = tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("cancels tasks on timeout", func(t *testing.T) {
		tm := New(Config{}, zap.NewNop())
		id, err := tm.Submit(context.Background(), "documentation", "", func(ctx context.Context) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Error(t, tm.Shutdown(ctx))

		task := waitFinished(t, tm, id)
		assert.Equal(t, TaskStatusCancelled, task.Status)
	})
}
