package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/pkg/crypto"
	"github.com/hugh/prompthub/pkg/queue"
)

// Enqueuer is the part of *asynq.Client the mailer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueMailer hands messages to the worker through asynq. Send returns once
// the task is enqueued; delivery happens out of band.
type QueueMailer struct {
	queue     Enqueuer
	encryptor *crypto.Encryptor
	timeout   time.Duration
	logger    *slog.Logger
}

func NewQueueMailer(queue Enqueuer, encryptor *crypto.Encryptor, timeout time.Duration, logger *slog.Logger) *QueueMailer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QueueMailer{
		queue:     queue,
		encryptor: encryptor,
		timeout:   timeout,
		logger:    logger,
	}
}

func (m *QueueMailer) Send(ctx context.Context, msg mail.Message) error {
	payload := SendMailPayload{
		To:        msg.To,
		Template:  msg.Template,
		ExpiresAt: msg.ExpiresAt,
		Lifetime:  msg.Lifetime,
	}
	if msg.ActivationURL != "" {
		sealed, err := m.encryptor.EncryptString(msg.ActivationURL)
		if err != nil {
			return fmt.Errorf("sealing activation url: %w", err)
		}
		payload.SealedActivationURL = sealed
	}

	task, err := NewSendMailTask(payload)
	if err != nil {
		return fmt.Errorf("building mail task: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	info, err := m.queue.EnqueueContext(ctx, task, asynq.Queue(queue.QueueCritical))
	if err != nil {
		return fmt.Errorf("enqueueing mail task: %w", err)
	}

	m.logger.Debug("mail enqueued", "task_id", info.ID, "template", msg.Template)
	return nil
}
