package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/notification"
	"github.com/shashiranjanraj/beanleaf/pkg/queue"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestTelegramSink_SendsPrivateMessage(t *testing.T) {
	bot := new(mockSender)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "hello"
	})).Return(nil).Once()

	sink := notification.NewTelegramSink(bot)
	require.NoError(t, sink.Notify(context.Background(), 42, "hello"))
	bot.AssertExpectations(t)
}

func TestTelegramSink_Errors(t *testing.T) {
	bot := new(mockSender)
	bot.On("Send", mock.Anything).Return(errors.New("Forbidden: bot was blocked by the user"))

	sink := notification.NewTelegramSink(bot)
	err := sink.Notify(context.Background(), 42, "hi")
	assert.ErrorContains(t, err, "blocked")

	assert.Error(t, sink.Notify(context.Background(), 0, "hi"))
}

func TestWebhookSink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := notification.NewWebhookSink(srv.URL)
	sink.Headers = map[string]string{"X-Token": "secret"}
	require.NoError(t, sink.Notify(context.Background(), 7, "paid"))
	assert.Equal(t, float64(7), got["telegram_id"])
	assert.Equal(t, "paid", got["text"])

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	assert.ErrorContains(t, notification.NewWebhookSink(bad.URL).Notify(context.Background(), 7, "x"), "502")
}

func TestMulti_JoinsErrors(t *testing.T) {
	var calls []string
	ok := notification.SinkFunc(func(_ context.Context, id int64, text string) error {
		calls = append(calls, "ok")
		return nil
	})
	boom := notification.SinkFunc(func(context.Context, int64, string) error {
		calls = append(calls, "boom")
		return errors.New("boom")
	})

	err := notification.Multi(boom, nil, ok).Notify(context.Background(), 1, "x")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"boom", "ok"}, calls)

	assert.NoError(t, notification.LogSink{Log: logger.Discard()}.Notify(context.Background(), 1, "x"))
}

func TestQueuedSink_DeliversThroughWorkers(t *testing.T) {
	var mu sync.Mutex
	var delivered []string
	deliver := notification.SinkFunc(func(_ context.Context, id int64, text string) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, text)
		return nil
	})

	q := queue.New(queue.NewMemoryDriver(), queue.WithBackoff(time.Millisecond))
	notification.RegisterJob(q, deliver)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		q.Wait()
	}()
	q.StartWorkers(ctx, 1)

	sink := notification.NewQueuedSink(q)
	require.NoError(t, sink.Notify(ctx, 9, "✅ Your order #3 is ready for collection!"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "✅ Your order #3 is ready for collection!", delivered[0])
}
