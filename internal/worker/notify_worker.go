package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notifier delivers a rendered message to an external channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// NotifyTask is one message waiting for delivery.
type NotifyTask struct {
	Event     string    `json:"event"`
	Text      string    `json:"text"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
	LastError string    `json:"last_error,omitempty"`
}

// NotifyWorker drains an in-memory queue and delivers tasks with backoff.
// Tasks that exhaust their retries go to a Redis dead-letter list when a
// client is configured.
type NotifyWorker struct {
	notifier      Notifier
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan NotifyTask
	deadLetterKey string
	logger        *zerolog.Logger
}

func NewNotifyWorker(notifier Notifier, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &NotifyWorker{
		notifier:      notifier,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan NotifyTask, 128),
		deadLetterKey: "futmap:notify:deadletter",
		logger:        logger,
	}
}

// Enqueue schedules a message. A full queue drops the task with a warning.
func (w *NotifyWorker) Enqueue(event, text string) error {
	if text == "" {
		return errors.New("notification text is required")
	}
	task := NotifyTask{Event: event, Text: text, CreatedAt: time.Now()}
	select {
	case w.queue <- task:
		return nil
	default:
		w.logger.Warn().Str("event", event).Msg("notify queue full, task dropped")
		return fmt.Errorf("notify queue full")
	}
}

// Start processes tasks until ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notify worker started")
	defer w.logger.Info().Msg("notify worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, &task)
		}
	}
}

func (w *NotifyWorker) processTask(ctx context.Context, task *NotifyTask) {
	err := w.notifier.Send(ctx, task.Text)
	if err == nil {
		return
	}
	w.retryOrFail(ctx, task, err)
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task *NotifyTask, cause error) {
	task.Attempt++
	task.LastError = cause.Error()
	if w.retryPolicy.Exhausted(task.Attempt) {
		w.logger.Error().Err(cause).Str("event", task.Event).Int("attempts", task.Attempt).Msg("notification failed")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	w.logger.Warn().Err(cause).Str("event", task.Event).Dur("retry_in", delay).Msg("notification retry scheduled")

	retry := *task
	time.AfterFunc(delay, func() {
		select {
		case <-ctx.Done():
		case w.queue <- retry:
		default:
			w.logger.Warn().Str("event", retry.Event).Msg("notify queue full, retry dropped")
		}
	})
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task *NotifyTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("deadletter push")
	}
}
