package notify

import (
	"context"
	"errors"
	"testing"

	"futmap/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

type recordingQueue struct {
	events []string
	texts  []string
	err    error
}

func (q *recordingQueue) Enqueue(event, text string) error {
	q.events = append(q.events, event)
	q.texts = append(q.texts, text)
	return q.err
}

func TestTelegramNotifier_Send(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "hello"
	})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()

	n := NewTelegramNotifier(sender, 42)
	require.NoError(t, n.Send(context.Background(), "hello"))
	sender.AssertExpectations(t)
}

func TestTelegramNotifier_Errors(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("429")).Once()

	n := NewTelegramNotifier(sender, 42)
	assert.Error(t, n.Send(context.Background(), "hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, "hello"), context.Canceled)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestSubscribe(t *testing.T) {
	bus := events.NewEventBus(nil)
	queue := &recordingQueue{}
	Subscribe(bus, queue)

	payload := events.BookingEventPayload{
		BookingID: "booking-1", FieldName: "Arena Sports Complex",
		Date: "2024-01-15", StartTime: "19:00", EndTime: "20:00",
		TotalPrice: 120, Players: 14, Notes: "Pelada",
	}
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, payload))
	require.NoError(t, bus.PublishJSON(events.EventBookingCancelled, payload))
	require.NoError(t, bus.PublishJSON(events.EventSessionLogin, events.SessionEventPayload{UserID: "user-1"}))

	assert.Equal(t, []string{events.EventBookingCreated, events.EventBookingCancelled}, queue.events)
	assert.Contains(t, queue.texts[0], "Nova reserva")
	assert.Contains(t, queue.texts[0], "2024-01-15 19:00-20:00")
	assert.Contains(t, queue.texts[0], "R$ 120.00")
	assert.Contains(t, queue.texts[0], "Pelada")
	assert.Contains(t, queue.texts[1], "cancelada")
}

func TestRender_OmitsEmptyOptionalLines(t *testing.T) {
	text := Render(events.EventBookingCreated, events.BookingEventPayload{BookingID: "b", FieldName: "F"})
	assert.NotContains(t, text, "Jogadores")
	assert.NotContains(t, text, "💬")
}
