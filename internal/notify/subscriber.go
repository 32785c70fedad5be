package notify

import (
	"fmt"
	"strings"

	"futmap/internal/events"
)

// Enqueuer accepts rendered messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(event, text string) error
}

// Subscribe renders booking events and hands them to queue.
func Subscribe(bus *events.EventBus, queue Enqueuer) {
	handler := func(e *events.Event) error {
		var p events.BookingEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		return queue.Enqueue(e.Type, Render(e.Type, p))
	}
	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingCancelled, handler)
}

// Render formats a booking event as a short chat message.
func Render(eventType string, p events.BookingEventPayload) string {
	var b strings.Builder
	switch eventType {
	case events.EventBookingCreated:
		b.WriteString("⚽ Nova reserva\n")
	case events.EventBookingCancelled:
		b.WriteString("❌ Reserva cancelada\n")
	default:
		fmt.Fprintf(&b, "%s\n", eventType)
	}
	fmt.Fprintf(&b, "%s\n", p.FieldName)
	fmt.Fprintf(&b, "%s %s-%s\n", p.Date, p.StartTime, p.EndTime)
	if p.Players > 0 {
		fmt.Fprintf(&b, "Jogadores: %d\n", p.Players)
	}
	fmt.Fprintf(&b, "Total: R$ %.2f\n", p.TotalPrice)
	fmt.Fprintf(&b, "ID: %s", p.BookingID)
	if p.Notes != "" {
		fmt.Fprintf(&b, "\n💬 %s", p.Notes)
	}
	return b.String()
}
