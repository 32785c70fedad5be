// Package ledger records bookings and their status transitions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"futmap/internal/domain"
	"futmap/internal/events"
	"futmap/internal/logging"
	"futmap/internal/metrics"
	"futmap/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ledger creates and cancels bookings against a slot catalog.
// Create is serialized per slot and Cancel per booking id.
type Ledger struct {
	store   domain.BookingStore
	catalog domain.SlotCatalog
	events  domain.EventPublisher
	logger  *zerolog.Logger

	loc           *time.Location
	timeout       time.Duration
	restoreSlot   bool
	defaultStatus models.BookingStatus
	now           func() time.Time

	slotLocks    *keyedMutex
	bookingLocks *keyedMutex
}

type Option func(*Ledger)

func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logging.Component(logger, "ledger") }
}

func WithEvents(publisher domain.EventPublisher) Option {
	return func(l *Ledger) { l.events = publisher }
}

// WithLocation sets the zone used to interpret booking dates.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithRestoreSlotOnCancel reopens the slot when a booking is cancelled.
func WithRestoreSlotOnCancel(restore bool) Option {
	return func(l *Ledger) { l.restoreSlot = restore }
}

// WithDefaultStatus sets the status given to drafts that carry none.
func WithDefaultStatus(status models.BookingStatus) Option {
	return func(l *Ledger) {
		if status == models.StatusPending || status == models.StatusConfirmed {
			l.defaultStatus = status
		}
	}
}

// WithTimeout bounds each store call.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.timeout = d }
}

func withClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store domain.BookingStore, catalog domain.SlotCatalog, opts ...Option) *Ledger {
	l := &Ledger{
		store:         store,
		catalog:       catalog,
		logger:        logging.Component(nil, "ledger"),
		loc:           time.Local,
		timeout:       models.DefaultStoreTimeout * time.Second,
		defaultStatus: models.StatusConfirmed,
		now:           time.Now,
		slotLocks:     newKeyedMutex(),
		bookingLocks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create validates the draft, reserves its slot and stores the booking.
// It fails with ErrSlotUnavailable when the slot is already taken, with
// ErrNotFound when the field has no such slot and with ErrValidationFailed
// when the draft's end time differs from the slot's.
func (l *Ledger) Create(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}
	if draft.Status == "" {
		draft.Status = l.defaultStatus
	}

	unlock := l.slotLocks.Lock(slotKey(draft.FieldID, draft.Date, draft.StartTime))
	defer unlock()

	available, err := l.catalog.SlotAvailable(ctx, draft.FieldID, draft.Date, draft.StartTime)
	if err != nil {
		return nil, err
	}
	if !available {
		metrics.IncBookingConflict()
		return nil, fmt.Errorf("field %s %s %s: %w", draft.FieldID, draft.Date, draft.StartTime, domain.ErrSlotUnavailable)
	}

	fieldName := draft.FieldName
	if f, ok := l.catalog.GetByID(ctx, draft.FieldID); ok {
		if fieldName == "" {
			fieldName = f.Name
		}
		if slot := f.Slot(draft.Date, draft.StartTime); slot != nil && slot.EndTime != draft.EndTime {
			return nil, domain.Validation("slot %s %s ends at %s, not %s", draft.Date, draft.StartTime, slot.EndTime, draft.EndTime)
		}
	}

	booking := &models.Booking{
		ID:          "booking-" + uuid.NewString(),
		FieldID:     draft.FieldID,
		FieldName:   fieldName,
		UserID:      draft.UserID,
		Date:        draft.Date,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		TotalPrice:  draft.TotalPrice,
		Status:      draft.Status,
		CreatedAt:   l.now().UTC(),
		PlayerCount: draft.PlayerCount,
		Notes:       draft.Notes,
	}

	if err := l.withTimeout(ctx, "insert booking", func(ctx context.Context) error {
		return l.store.InsertBooking(ctx, booking)
	}); err != nil {
		return nil, err
	}

	l.catalog.MarkSlotUnavailable(ctx, booking.FieldID, booking.Date, booking.StartTime)

	metrics.IncBookingCreated(booking.FieldID)
	l.publish(events.EventBookingCreated, booking)
	l.logger.Info().
		Str("booking_id", booking.ID).
		Str("field_id", booking.FieldID).
		Str("user_id", booking.UserID).
		Str("date", booking.Date).
		Str("start", booking.StartTime).
		Msg("booking created")

	return booking, nil
}

// Cancel moves a pending or confirmed booking to cancelled. Unknown and
// already cancelled bookings report false without error.
func (l *Ledger) Cancel(ctx context.Context, bookingID string) (bool, error) {
	unlock := l.bookingLocks.Lock(bookingID)
	defer unlock()

	var booking *models.Booking
	err := l.withTimeout(ctx, "get booking", func(ctx context.Context) error {
		var err error
		booking, err = l.store.GetBooking(ctx, bookingID)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !booking.CanBeCancelled() {
		return false, nil
	}

	if err := l.withTimeout(ctx, "update booking status", func(ctx context.Context) error {
		return l.store.UpdateBookingStatus(ctx, bookingID, models.StatusCancelled)
	}); err != nil {
		return false, err
	}
	booking.Status = models.StatusCancelled

	if l.restoreSlot {
		l.catalog.MarkSlotAvailable(ctx, booking.FieldID, booking.Date, booking.StartTime)
	}

	metrics.IncBookingCancelled()
	l.publish(events.EventBookingCancelled, booking)
	l.logger.Info().Str("booking_id", bookingID).Bool("slot_restored", l.restoreSlot).Msg("booking cancelled")

	return true, nil
}

func (l *Ledger) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking *models.Booking
	err := l.withTimeout(ctx, "get booking", func(ctx context.Context) error {
		var err error
		booking, err = l.store.GetBooking(ctx, bookingID)
		return err
	})
	return booking, err
}

// ListForUser returns the user's bookings, most recent first.
func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := l.withTimeout(ctx, "list bookings", func(ctx context.Context) error {
		var err error
		bookings, err = l.store.ListUserBookings(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (l *Ledger) ListByStatus(ctx context.Context, userID string, status models.BookingStatus) ([]models.Booking, error) {
	if !status.Valid() {
		return nil, domain.Validation("unknown status %q", status)
	}
	all, err := l.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

// Upcoming returns confirmed bookings starting after now, soonest first.
func (l *Ledger) Upcoming(ctx context.Context, userID string, now time.Time) ([]models.Booking, error) {
	all, err := l.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type dated struct {
		booking models.Booking
		start   time.Time
	}
	upcoming := make([]dated, 0, len(all))
	for _, b := range all {
		if b.Status != models.StatusConfirmed {
			continue
		}
		start, err := b.StartsAt(l.loc)
		if err != nil {
			l.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("skip booking with bad start")
			continue
		}
		if start.After(now) {
			upcoming = append(upcoming, dated{booking: b, start: start})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].start.Before(upcoming[j].start)
	})

	out := make([]models.Booking, 0, len(upcoming))
	for _, d := range upcoming {
		out = append(out, d.booking)
	}
	return out, nil
}

// Stats counts the user's bookings by status. TotalSpent sums confirmed only.
func (l *Ledger) Stats(ctx context.Context, userID string) (models.BookingStats, error) {
	all, err := l.ListForUser(ctx, userID)
	if err != nil {
		return models.BookingStats{}, err
	}

	var stats models.BookingStats
	stats.Total = len(all)
	for _, b := range all {
		switch b.Status {
		case models.StatusConfirmed:
			stats.Confirmed++
			stats.TotalSpent += b.TotalPrice
		case models.StatusPending:
			stats.Pending++
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// Import stores existing bookings as-is and closes the slots held by
// the newly stored ones that are still active. Bookings already present
// are skipped and leave the catalog untouched.
func (l *Ledger) Import(ctx context.Context, bookings []models.Booking) error {
	for i := range bookings {
		b := bookings[i]
		inserted := false
		err := l.withTimeout(ctx, "import booking", func(ctx context.Context) error {
			_, err := l.store.GetBooking(ctx, b.ID)
			if err == nil {
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := l.store.InsertBooking(ctx, &b); err != nil {
				return err
			}
			inserted = true
			return nil
		})
		if err != nil {
			return err
		}
		if inserted && b.CanBeCancelled() {
			l.catalog.MarkSlotUnavailable(ctx, b.FieldID, b.Date, b.StartTime)
		}
	}
	return nil
}

func (l *Ledger) withTimeout(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return domain.Transient(op, fn(ctx))
}

func (l *Ledger) publish(eventType string, b *models.Booking) {
	if l.events == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:  b.ID,
		UserID:     b.UserID,
		FieldID:    b.FieldID,
		FieldName:  b.FieldName,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
		Players:    b.PlayerCount,
		Notes:      b.Notes,
	}
	if err := l.events.PublishJSON(eventType, payload); err != nil {
		l.logger.Warn().Err(err).Str("event_type", eventType).Msg("publish event")
	}
}

func slotKey(fieldID, date, startTime string) string {
	return fieldID + "|" + date + "|" + startTime
}
