package ledger

import (
	"context"
	"fmt"
	"sync"

	"futmap/internal/domain"
	"futmap/internal/models"
)

// MemoryStore keeps bookings in process memory in creation order.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]*models.Booking
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[string]*models.Booking)}
}

func (s *MemoryStore) InsertBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[booking.ID]; exists {
		return domain.Validation("booking %s already exists", booking.ID)
	}
	b := *booking
	s.bookings[b.ID] = &b
	s.order = append(s.order, b.ID)
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	out := *b
	return &out, nil
}

func (s *MemoryStore) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	b.Status = status
	return nil
}

// ListUserBookings returns the user's bookings, most recent first.
func (s *MemoryStore) ListUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Booking, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		b := s.bookings[s.order[i]]
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}
