package notification

import (
	"context"

	"github.com/shashiranjanraj/beanleaf/pkg/queue"
)

// JobName is the queue registry name for notification jobs.
const JobName = "notification.send"

// Job is one queued message. The delivering sink is injected by the
// factory registered in RegisterJob.
type Job struct {
	TelegramID int64  `json:"telegram_id"`
	Text       string `json:"text"`

	sink Sink
}

func (j *Job) Handle(ctx context.Context) error {
	return j.sink.Notify(ctx, j.TelegramID, j.Text)
}

// RegisterJob teaches m to decode notification jobs and deliver them
// through deliver.
func RegisterJob(m *queue.Manager, deliver Sink) {
	m.Register(JobName, func() queue.Job { return &Job{sink: deliver} })
}

// QueuedSink enqueues messages instead of sending them inline, so a slow or
// failing Telegram API never delays an order transition.
type QueuedSink struct {
	q *queue.Manager
}

func NewQueuedSink(q *queue.Manager) *QueuedSink {
	return &QueuedSink{q: q}
}

func (s *QueuedSink) Notify(ctx context.Context, telegramID int64, text string) error {
	return s.q.Dispatch(ctx, JobName, &Job{TelegramID: telegramID, Text: text})
}
