package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/hugh/rateboard/internal/mail"
)

// Enqueuer is the part of *asynq.Client used to hand off work.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender is a mail.Sender that defers delivery to the worker. Send
// succeeds once the message is queued.
type QueueSender struct {
	client Enqueuer
}

var _ mail.Sender = (*QueueSender)(nil)

func NewQueueSender(client Enqueuer) *QueueSender {
	return &QueueSender{client: client}
}

func (s *QueueSender) Send(ctx context.Context, msg mail.Message) error {
	task, err := NewEmailTask(msg)
	if err != nil {
		return fmt.Errorf("building email task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue("critical")); err != nil {
		return fmt.Errorf("enqueueing email: %w", err)
	}
	return nil
}
