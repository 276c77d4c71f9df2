package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTooManyTasks возвращается, если достигнут лимит активных задач.
	ErrTooManyTasks = errors.New("maximum number of active tasks reached")
	// ErrTaskNotFound возвращается для неизвестного или уже очищенного ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrClosed возвращается после начала остановки менеджера.
	ErrClosed = errors.New("task manager is shutting down")
)

// TaskStatus представляет статус задачи
type TaskStatus string

// Возможные статусы задач
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Finished сообщает, что задача больше не выполняется.
func (s TaskStatus) Finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// Task - снимок состояния асинхронной задачи.
type Task struct {
	ID        uuid.UUID
	OwnerID   string
	Kind      string
	Status    TaskStatus
	Message   string
	Result    interface{}
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskFunc представляет функцию, выполняемую в задаче
type TaskFunc func(ctx context.Context) (interface{}, error)

// Config содержит конфигурацию для TaskManager
type Config struct {
	MaxTasks int
	// TaskTimeout ограничивает время выполнения одной задачи. 0 - без ограничения.
	TaskTimeout time.Duration
}

// TaskManager выполняет задачи в фоне и хранит их состояние в памяти.
type TaskManager struct {
	mu       sync.RWMutex
	tasks    map[uuid.UUID]*Task
	cancels  map[uuid.UUID]context.CancelFunc
	maxTasks int
	timeout  time.Duration
	closed   bool
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New создает новый экземпляр TaskManager
func New(cfg Config, logger *zap.Logger) *TaskManager {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10
	}
	return &TaskManager{
		tasks:    make(map[uuid.UUID]*Task),
		cancels:  make(map[uuid.UUID]context.CancelFunc),
		maxTasks: maxTasks,
		timeout:  cfg.TaskTimeout,
		logger:   logger.Named("TaskManager"),
	}
}

// Submit создает и запускает новую задачу.
// Задача выполняется в собственном контексте и не отменяется вместе с ctx запроса.
func (tm *TaskManager) Submit(ctx context.Context, kind, ownerID string, taskFunc TaskFunc) (uuid.UUID, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.closed {
		return uuid.Nil, ErrClosed
	}

	active := 0
	for _, task := range tm.tasks {
		if !task.Status.Finished() {
			active++
		}
	}
	if active >= tm.maxTasks {
		return uuid.Nil, ErrTooManyTasks
	}

	taskID := uuid.New()
	baseCtx := context.WithoutCancel(ctx)
	var taskCtx context.Context
	var cancel context.CancelFunc
	if tm.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(baseCtx, tm.timeout)
	} else {
		taskCtx, cancel = context.WithCancel(baseCtx)
	}

	now := time.Now()
	task := &Task{
		ID:        taskID,
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tm.tasks[taskID] = task
	tm.cancels[taskID] = cancel

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer cancel()
		tm.runTask(taskCtx, taskID, taskFunc)
	}()

	tm.logger.Info("Task submitted",
		zap.String("taskID", taskID.String()),
		zap.String("kind", kind),
		zap.String("ownerID", ownerID),
	)
	return taskID, nil
}

// runTask выполняет задачу и обновляет ее статус
func (tm *TaskManager) runTask(ctx context.Context, taskID uuid.UUID, taskFunc TaskFunc) {
	log := tm.logger.With(zap.String("taskID", taskID.String()))
	tm.update(taskID, TaskStatusRunning, "Task started", nil, nil)

	result, err := taskFunc(ctx)

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		log.Info("Task context was cancelled")
		tm.update(taskID, TaskStatusCancelled, "Task cancelled", nil, ctx.Err())
	case ctx.Err() != nil:
		log.Error("Task context error", zap.Error(ctx.Err()))
		tm.update(taskID, TaskStatusFailed, fmt.Sprintf("Context error: %v", ctx.Err()), nil, ctx.Err())
	case err != nil:
		log.Error("Task failed", zap.Error(err))
		tm.update(taskID, TaskStatusFailed, "Task failed", nil, err)
	default:
		log.Info("Task completed")
		tm.update(taskID, TaskStatusCompleted, "Task completed", result, nil)
	}
}

func (tm *TaskManager) update(taskID uuid.UUID, status TaskStatus, message string, result interface{}, err error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, ok := tm.tasks[taskID]
	if !ok {
		return
	}
	task.Status = status
	task.Message = message
	task.Result = result
	if err != nil {
		task.Error = err.Error()
	}
	task.UpdatedAt = time.Now()
	if status.Finished() {
		delete(tm.cancels, taskID)
	}
}

// Get возвращает копию состояния задачи.
func (tm *TaskManager) Get(taskID uuid.UUID) (Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, ok := tm.tasks[taskID]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return *task, nil
}

// Cleanup удаляет завершенные задачи, которые старше указанного времени.
// Возвращает число удаленных задач.
func (tm *TaskManager) Cleanup(age time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, task := range tm.tasks {
		if task.Status.Finished() && now.Sub(task.UpdatedAt) > age {
			delete(tm.tasks, id)
			removed++
		}
	}
	if removed > 0 {
		tm.logger.Debug("Finished tasks cleaned up", zap.Int("removed", removed))
	}
	return removed
}

// Shutdown запрещает новые задачи и ждет завершения текущих.
// Если ctx истекает раньше, оставшиеся задачи отменяются.
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.mu.Lock()
	tm.closed = true
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		tm.mu.Lock()
		for _, cancel := range tm.cancels {
			cancel()
		}
		tm.mu.Unlock()
		tm.logger.Warn("Shutdown timed out, running tasks cancelled")
		return fmt.Errorf("waiting for tasks: %w", ctx.Err())
	}
}
