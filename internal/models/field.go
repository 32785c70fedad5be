package models

import (
	"fmt"
	"time"
)

type FieldType string

const (
	FieldTypeOutdoor   FieldType = "outdoor"
	FieldTypeIndoor    FieldType = "indoor"
	FieldTypeSynthetic FieldType = "synthetic"
	FieldTypeGrass     FieldType = "grass"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeOutdoor, FieldTypeIndoor, FieldTypeSynthetic, FieldTypeGrass:
		return true
	}
	return false
}

type FieldSize string

const (
	FieldSize5v5   FieldSize = "5v5"
	FieldSize7v7   FieldSize = "7v7"
	FieldSize11v11 FieldSize = "11v11"
)

func (s FieldSize) Valid() bool {
	switch s {
	case FieldSize5v5, FieldSize7v7, FieldSize11v11:
		return true
	}
	return false
}

type PriceUnit string

const (
	PriceUnitHour  PriceUnit = "hour"
	PriceUnitMatch PriceUnit = "match"
)

func (u PriceUnit) Valid() bool {
	return u == PriceUnitHour || u == PriceUnitMatch
}

type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" toml:"lat"`
	Lng float64 `json:"lng" yaml:"lng" toml:"lng"`
}

type Contact struct {
	Phone string `json:"phone" yaml:"phone" toml:"phone"`
	Email string `json:"email" yaml:"email" toml:"email"`
}

// Field is a bookable football venue.
type Field struct {
	ID           string      `json:"id" yaml:"id" toml:"id"`
	Name         string      `json:"name" yaml:"name" toml:"name"`
	Address      string      `json:"address" yaml:"address" toml:"address"`
	Coordinates  Coordinates `json:"coordinates" yaml:"coordinates" toml:"coordinates"`
	Type         FieldType   `json:"type" yaml:"type" toml:"type"`
	Size         FieldSize   `json:"size" yaml:"size" toml:"size"`
	Price        float64     `json:"price" yaml:"price" toml:"price"`
	PriceUnit    PriceUnit   `json:"price_unit" yaml:"price_unit" toml:"price_unit"`
	Rating       float64     `json:"rating" yaml:"rating" toml:"rating"`
	TotalRatings int         `json:"total_ratings" yaml:"total_ratings" toml:"total_ratings"`
	Amenities    []string    `json:"amenities" yaml:"amenities" toml:"amenities"`
	Images       []string    `json:"images" yaml:"images" toml:"images"`
	Description  string      `json:"description" yaml:"description" toml:"description"`
	Availability []TimeSlot  `json:"availability" yaml:"availability" toml:"availability"`
	Contact      Contact     `json:"contact" yaml:"contact" toml:"contact"`
	IsVerified   bool        `json:"is_verified" yaml:"is_verified" toml:"is_verified"`
	IsOpen       bool        `json:"is_open" yaml:"is_open" toml:"is_open"`
}

// TimeSlot is a bookable interval on a field.
type TimeSlot struct {
	ID          string  `json:"id" yaml:"id" toml:"id"`
	Date        string  `json:"date" yaml:"date" toml:"date"`
	StartTime   string  `json:"start_time" yaml:"start_time" toml:"start_time"`
	EndTime     string  `json:"end_time" yaml:"end_time" toml:"end_time"`
	IsAvailable bool    `json:"is_available" yaml:"is_available" toml:"is_available"`
	Price       float64 `json:"price" yaml:"price" toml:"price"`
}

// Matches reports whether the slot is identified by the given date and start time.
func (s *TimeSlot) Matches(date, startTime string) bool {
	return s.Date == date && s.StartTime == startTime
}

// Validate checks the slot's date and that its start time precedes the end time.
func (s *TimeSlot) Validate() error {
	if _, err := time.Parse(DateFormat, s.Date); err != nil {
		return fmt.Errorf("slot %s: invalid date %q", s.ID, s.Date)
	}
	start, err := time.Parse(TimeFormat, s.StartTime)
	if err != nil {
		return fmt.Errorf("slot %s: invalid start time %q", s.ID, s.StartTime)
	}
	end, err := time.Parse(TimeFormat, s.EndTime)
	if err != nil {
		return fmt.Errorf("slot %s: invalid end time %q", s.ID, s.EndTime)
	}
	if !start.Before(end) {
		return fmt.Errorf("slot %s: start %s is not before end %s", s.ID, s.StartTime, s.EndTime)
	}
	if s.Price < 0 {
		return fmt.Errorf("slot %s: negative price", s.ID)
	}
	return nil
}

// Validate checks enum values, numeric ranges and slot key uniqueness.
func (f *Field) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("field %q has empty id", f.Name)
	}
	if !f.Type.Valid() {
		return fmt.Errorf("field %s: unknown type %q", f.ID, f.Type)
	}
	if !f.Size.Valid() {
		return fmt.Errorf("field %s: unknown size %q", f.ID, f.Size)
	}
	if !f.PriceUnit.Valid() {
		return fmt.Errorf("field %s: unknown price unit %q", f.ID, f.PriceUnit)
	}
	if f.Price < 0 {
		return fmt.Errorf("field %s: negative price", f.ID)
	}
	if f.Rating < 0 || f.Rating > MaxRating {
		return fmt.Errorf("field %s: rating %.1f out of range", f.ID, f.Rating)
	}

	seen := make(map[string]bool, len(f.Availability))
	for i := range f.Availability {
		slot := &f.Availability[i]
		if err := slot.Validate(); err != nil {
			return fmt.Errorf("field %s: %w", f.ID, err)
		}
		key := slot.Date + " " + slot.StartTime
		if seen[key] {
			return fmt.Errorf("field %s: duplicate slot at %s", f.ID, key)
		}
		seen[key] = true
	}
	return nil
}

// HasAmenity reports whether the field offers the amenity.
func (f *Field) HasAmenity(amenity string) bool {
	for _, a := range f.Amenities {
		if a == amenity {
			return true
		}
	}
	return false
}

// Slot returns the slot starting at date/startTime, or nil.
func (f *Field) Slot(date, startTime string) *TimeSlot {
	for i := range f.Availability {
		if f.Availability[i].Matches(date, startTime) {
			return &f.Availability[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate catalog state.
func (f Field) Clone() Field {
	out := f
	out.Amenities = append([]string(nil), f.Amenities...)
	out.Images = append([]string(nil), f.Images...)
	out.Availability = append([]TimeSlot(nil), f.Availability...)
	return out
}
