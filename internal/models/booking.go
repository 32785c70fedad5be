package models

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Booking struct {
	ID          string        `json:"id"`
	FieldID     string        `json:"field_id"`
	FieldName   string        `json:"field_name"`
	UserID      string        `json:"user_id"`
	Date        string        `json:"date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	TotalPrice  float64       `json:"total_price"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	PlayerCount int           `json:"player_count"`
	Notes       string        `json:"notes,omitempty"`
}

// CanBeCancelled returns true while the booking is not yet cancelled.
func (b *Booking) CanBeCancelled() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// StartsAt combines the booking date and start time in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return SlotStart(b.Date, b.StartTime, loc)
}

// BookingDraft is everything the caller supplies when reserving a slot.
type BookingDraft struct {
	FieldID     string        `json:"field_id"`
	FieldName   string        `json:"field_name"`
	UserID      string        `json:"user_id"`
	Date        string        `json:"date"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	TotalPrice  float64       `json:"total_price"`
	Status      BookingStatus `json:"status"`
	PlayerCount int           `json:"player_count"`
	Notes       string        `json:"notes,omitempty"`
}

// Validate checks required keys, time ordering and numeric ranges.
func (d *BookingDraft) Validate() error {
	if d.FieldID == "" {
		return fmt.Errorf("field_id is required")
	}
	if d.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	slot := TimeSlot{ID: "draft", Date: d.Date, StartTime: d.StartTime, EndTime: d.EndTime, Price: d.TotalPrice}
	if err := slot.Validate(); err != nil {
		return err
	}
	if d.PlayerCount < 0 {
		return fmt.Errorf("player_count must not be negative")
	}
	if d.Status != "" && !d.Status.Valid() {
		return fmt.Errorf("unknown status %q", d.Status)
	}
	if d.Status == StatusCancelled {
		return fmt.Errorf("cannot create a cancelled booking")
	}
	return nil
}

// BookingStats aggregates a user's bookings.
type BookingStats struct {
	Total      int     `json:"total"`
	Confirmed  int     `json:"confirmed"`
	Pending    int     `json:"pending"`
	Cancelled  int     `json:"cancelled"`
	TotalSpent float64 `json:"total_spent"`
}

// SlotStart parses "2006-01-02" and "15:04" into a point in time.
func SlotStart(date, startTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateFormat+" "+TimeFormat, date+" "+startTime, loc)
}
