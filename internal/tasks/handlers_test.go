package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("enqueue without deadline")
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

type recordingSender struct {
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activation() mail.Message {
	return mail.Message{
		To:            "alice@example.com",
		Template:      mail.TemplateActivation,
		ActivationURL: "http://localhost:8080/api/v1/auth/activate?token=secret-token",
		ExpiresAt:     time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
		Lifetime:      "1 hour",
	}
}

func TestQueueMailer_SealsActivationURL(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	q := &fakeQueue{}

	mailer := NewQueueMailer(q, enc, time.Second, testLogger())
	require.NoError(t, mailer.Send(context.Background(), activation()))

	require.Len(t, q.tasks, 1)
	assert.Equal(t, TypeSendMail, q.tasks[0].Type())
	assert.NotContains(t, string(q.tasks[0].Payload()), "secret-token")
}

func TestQueueMailer_EnqueueError(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)

	mailer := NewQueueMailer(&fakeQueue{err: errors.New("redis down")}, enc, time.Second, testLogger())
	err = mailer.Send(context.Background(), activation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueueing mail task")
}

func TestHandleSendMail_RoundTrip(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	q := &fakeQueue{}
	sender := &recordingSender{}

	require.NoError(t, NewQueueMailer(q, enc, time.Second, testLogger()).Send(context.Background(), activation()))
	require.Len(t, q.tasks, 1)

	handler := NewHandler(sender, enc, testLogger())
	require.NoError(t, handler.HandleSendMail(context.Background(), q.tasks[0]))

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	want := activation()
	assert.Equal(t, want.To, got.To)
	assert.Equal(t, want.ActivationURL, got.ActivationURL)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, want.Lifetime, got.Lifetime)
}

func TestHandleSendMail_InvalidPayload(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	handler := NewHandler(&recordingSender{}, enc, testLogger())

	err = handler.HandleSendMail(context.Background(), asynq.NewTask(TypeSendMail, []byte("invalid json")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSendMail_SenderFailureIsRetried(t *testing.T) {
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	q := &fakeQueue{}
	require.NoError(t, NewQueueMailer(q, enc, time.Second, testLogger()).Send(context.Background(), activation()))

	handler := NewHandler(&recordingSender{err: errors.New("smtp unavailable")}, enc, testLogger())
	err = handler.HandleSendMail(context.Background(), q.tasks[0])
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
