// Package catalog holds the field listings and their slot availability.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"futmap/internal/domain"
	"futmap/internal/logging"
	"futmap/internal/models"

	"github.com/rs/zerolog"
)

// Catalog is safe for concurrent use. Reads return deep copies.
type Catalog struct {
	mu     sync.RWMutex
	fields []models.Field
	index  map[string]int

	store  domain.SlotStore
	logger *zerolog.Logger
}

type Option func(*Catalog)

// WithStore writes slot flips through to a persistent store.
func WithStore(store domain.SlotStore) Option {
	return func(c *Catalog) { c.store = store }
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Catalog) { c.logger = logging.Component(logger, "catalog") }
}

// New validates fields and builds a catalog in the given order.
func New(fields []models.Field, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		fields: make([]models.Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
		logger: logging.Component(nil, "catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}

	for i := range fields {
		f := fields[i]
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
		}
		if _, dup := c.index[f.ID]; dup {
			return nil, domain.Validation("duplicate field id %s", f.ID)
		}
		c.index[f.ID] = len(c.fields)
		c.fields = append(c.fields, f.Clone())
	}
	return c, nil
}

// Open loads the catalog from store, seeding it with fallback when empty.
func Open(ctx context.Context, store domain.SlotStore, fallback []models.Field, opts ...Option) (*Catalog, error) {
	fields, err := store.LoadFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	if len(fields) == 0 {
		if err := store.SaveFields(ctx, fallback); err != nil {
			return nil, fmt.Errorf("seed fields: %w", err)
		}
		fields = fallback
	}
	return New(fields, append(opts, WithStore(store))...)
}

func (c *Catalog) ListAll(ctx context.Context) []models.Field {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Field, 0, len(c.fields))
	for i := range c.fields {
		out = append(out, c.fields[i].Clone())
	}
	return out
}

// GetByID returns nil, false on a miss.
func (c *Catalog) GetByID(ctx context.Context, id string) (*models.Field, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	f := c.fields[i].Clone()
	return &f, true
}

// Search matches query case-insensitively as a substring of name or address.
// An empty query matches every field.
func (c *Catalog) Search(ctx context.Context, query string) []models.Field {
	q := strings.ToLower(query)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Field, 0)
	for i := range c.fields {
		f := &c.fields[i]
		if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(strings.ToLower(f.Address), q) {
			out = append(out, f.Clone())
		}
	}
	return out
}

// Filter returns the fields satisfying every active facet of criteria.
func (c *Catalog) Filter(ctx context.Context, criteria models.MapFilter) []models.Field {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Field, 0)
	for i := range c.fields {
		if matches(&c.fields[i], &criteria) {
			out = append(out, c.fields[i].Clone())
		}
	}
	return out
}

// Availability returns the field's slots on date in catalog order.
func (c *Catalog) Availability(ctx context.Context, fieldID, date string) []models.TimeSlot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.TimeSlot, 0)
	i, ok := c.index[fieldID]
	if !ok {
		return out
	}
	for _, s := range c.fields[i].Availability {
		if s.Date == date {
			out = append(out, s)
		}
	}
	return out
}

// Favorites resolves ids to fields in catalog order, skipping unknown ids.
func (c *Catalog) Favorites(ctx context.Context, ids []string) []models.Field {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Field, 0, len(want))
	for i := range c.fields {
		if want[c.fields[i].ID] {
			out = append(out, c.fields[i].Clone())
		}
	}
	return out
}

// SlotAvailable fails with ErrNotFound when the field or slot is unknown.
func (c *Catalog) SlotAvailable(ctx context.Context, fieldID, date, startTime string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	slot := c.findSlot(fieldID, date, startTime)
	if slot == nil {
		return false, fmt.Errorf("slot %s %s %s: %w", fieldID, date, startTime, domain.ErrNotFound)
	}
	return slot.IsAvailable, nil
}

// MarkSlotUnavailable flips the matching slot. Unknown slots are ignored.
func (c *Catalog) MarkSlotUnavailable(ctx context.Context, fieldID, date, startTime string) {
	c.setSlot(ctx, fieldID, date, startTime, false)
}

// MarkSlotAvailable reopens the matching slot. Unknown slots are ignored.
func (c *Catalog) MarkSlotAvailable(ctx context.Context, fieldID, date, startTime string) {
	c.setSlot(ctx, fieldID, date, startTime, true)
}

func (c *Catalog) setSlot(ctx context.Context, fieldID, date, startTime string, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot := c.findSlot(fieldID, date, startTime)
	if slot == nil {
		c.logger.Debug().Str("field_id", fieldID).Str("date", date).Str("start", startTime).Msg("slot not found")
		return
	}
	slot.IsAvailable = available

	if c.store == nil {
		return
	}
	if err := c.store.SetSlotAvailability(ctx, fieldID, date, startTime, available); err != nil {
		c.logger.Error().Err(err).
			Str("field_id", fieldID).
			Str("date", date).
			Str("start", startTime).
			Bool("available", available).
			Msg("persist slot availability")
	}
}

// findSlot expects c.mu to be held.
func (c *Catalog) findSlot(fieldID, date, startTime string) *models.TimeSlot {
	i, ok := c.index[fieldID]
	if !ok {
		return nil
	}
	return c.fields[i].Slot(date, startTime)
}
