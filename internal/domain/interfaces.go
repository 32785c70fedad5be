package domain

import (
	"context"
	"time"

	"futmap/internal/models"
)

// SlotStore persists the catalog and slot availability flips.
type SlotStore interface {
	LoadFields(ctx context.Context) ([]models.Field, error)
	SaveFields(ctx context.Context, fields []models.Field) error
	SetSlotAvailability(ctx context.Context, fieldID, date, startTime string, available bool) error
}

// SlotCatalog is the part of the field catalog the booking ledger depends on.
type SlotCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Field, bool)
	SlotAvailable(ctx context.Context, fieldID, date, startTime string) (bool, error)
	MarkSlotUnavailable(ctx context.Context, fieldID, date, startTime string)
	MarkSlotAvailable(ctx context.Context, fieldID, date, startTime string)
}

// BookingStore keeps booking records. ListByUser returns most recent first.
type BookingStore interface {
	InsertBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
	ListUserBookings(ctx context.Context, userID string) ([]models.Booking, error)
}

// KVStore is durable client-local key-value state.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type CatalogService interface {
	ListAll(ctx context.Context) []models.Field
	GetByID(ctx context.Context, id string) (*models.Field, bool)
	Search(ctx context.Context, query string) []models.Field
	Filter(ctx context.Context, criteria models.MapFilter) []models.Field
	Availability(ctx context.Context, fieldID, date string) []models.TimeSlot
	Favorites(ctx context.Context, ids []string) []models.Field
}

type LedgerService interface {
	Create(ctx context.Context, draft models.BookingDraft) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID string) (bool, error)
	Get(ctx context.Context, bookingID string) (*models.Booking, error)
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListByStatus(ctx context.Context, userID string, status models.BookingStatus) ([]models.Booking, error)
	Upcoming(ctx context.Context, userID string, now time.Time) ([]models.Booking, error)
	Stats(ctx context.Context, userID string) (models.BookingStats, error)
}
