package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tubewatch/tubewatch/app/cfg"
	"github.com/tubewatch/tubewatch/app/database"
	"github.com/tubewatch/tubewatch/app/tracker"
)

// ErrTaskInFlight is returned when a task with the same coalesce key is
// already queued or running.
var ErrTaskInFlight = errors.New("task already in flight")

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler drives the two background loops: per-channel checks on the
// scheduler interval and retry queue drains on the retry interval. The
// persisted channel set is the job store; it is re-read on every tick, so
// channels added or removed at runtime are picked up without restarts.
//
// Overlapping runs are coalesced per channel: while a check for a channel is
// queued or executing, further ticks skip it.
type Scheduler struct {
	channelRepo      database.ChannelRepository
	videoRepo        database.VideoRepository
	notificationRepo database.NotificationRepository
	retryRepo        database.RetryQueueRepository
	checker          ChannelChecker
	notifier         tracker.Notifier

	interval         time.Duration
	retryInterval    time.Duration
	workerCount      int
	maxRetryAttempts int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewScheduler(channelRepo database.ChannelRepository, videoRepo database.VideoRepository,
	notificationRepo database.NotificationRepository, retryRepo database.RetryQueueRepository,
	checker ChannelChecker, notifier tracker.Notifier) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		channelRepo:      channelRepo,
		videoRepo:        videoRepo,
		notificationRepo: notificationRepo,
		retryRepo:        retryRepo,
		checker:          checker,
		notifier:         notifier,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		retryInterval:    time.Duration(cfg.RetryInterval) * time.Second,
		workerCount:      cfg.WorkerCount,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
		inFlight:         make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueCheckTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueCheckTasks()
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.retryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRetryDrain()
			}
		}
	}()
}

// Stop cancels the scheduler context and waits for workers and pending retry
// re-enqueues. The task queue is left open: retry goroutines may still reach
// EnqueueTask while draining, and a closed channel would turn that into a
// send panic.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// EnqueueTask queues a task unless one with the same coalesce key is already
// in flight.
func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if !s.acquire(task.CoalesceKey()) {
		return ErrTaskInFlight
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		s.release(task.CoalesceKey())
		return s.ctx.Err()
	default:
		s.release(task.CoalesceKey())
		return fmt.Errorf("task queue is full")
	}
}

// enqueueCheckTasks queues a check for every active channel that is due.
// Inactive channels are never queued; the due filter here saves queue churn
// and the workflow re-checks both gates at execution time.
func (s *Scheduler) enqueueCheckTasks() {
	channels, err := s.channelRepo.GetActiveChannels()
	if err != nil {
		slog.Error("Failed to load active channels for scheduling", "error", err)
		return
	}

	if len(channels) == 0 {
		slog.Debug("No active channels to schedule")
		return
	}

	now := time.Now().UTC()
	for _, ch := range channels {
		if ch.LastCheck != nil {
			due := ch.LastCheck.Add(time.Duration(ch.CheckInterval) * time.Second)
			if now.Before(due) {
				slog.Debug("Channel not due for check yet", "channel_id", ch.ChannelID, "due_at", due)
				continue
			}
		}

		task := NewCheckChannelTask(ch.ChannelID, s.checker)
		if err := s.EnqueueTask(task); err != nil {
			if errors.Is(err, ErrTaskInFlight) {
				slog.Debug("Channel check already in flight, coalescing", "channel_id", ch.ChannelID)
				continue
			}
			slog.Warn("Failed to enqueue CheckChannelTask", "channel_id", ch.ChannelID, "error", err)
		}
	}
}

func (s *Scheduler) enqueueRetryDrain() {
	task := NewRetryDrainTask(s.retryRepo, s.videoRepo, s.notificationRepo,
		s.notifier, s.maxRetryAttempts, s.retryInterval)

	if err := s.EnqueueTask(task); err != nil {
		if errors.Is(err, ErrTaskInFlight) {
			slog.Debug("Retry drain already in flight, coalescing")
			return
		}
		slog.Warn("Failed to enqueue RetryDrainTask", "error", err)
	}
}

func (s *Scheduler) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *Scheduler) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	s.release(task.CoalesceKey())

	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "channel_id", task.GetChannelID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
