package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testField() Field {
	return Field{
		ID:        "1",
		Name:      "Arena",
		Type:      FieldTypeSynthetic,
		Size:      FieldSize7v7,
		Price:     120,
		PriceUnit: PriceUnitHour,
		Rating:    4.5,
		Amenities: []string{"Parking"},
		Availability: []TimeSlot{
			{ID: "1-1", Date: "2024-01-15", StartTime: "19:00", EndTime: "20:00", IsAvailable: true, Price: 120},
			{ID: "1-2", Date: "2024-01-15", StartTime: "20:00", EndTime: "21:00", Price: 120},
		},
	}
}

func TestField_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f := testField()
		assert.NoError(t, f.Validate())
	})

	t.Run("UnknownType", func(t *testing.T) {
		f := testField()
		f.Type = "beach"
		assert.Error(t, f.Validate())
	})

	t.Run("NegativePrice", func(t *testing.T) {
		f := testField()
		f.Price = -1
		assert.Error(t, f.Validate())
	})

	t.Run("RatingOutOfRange", func(t *testing.T) {
		f := testField()
		f.Rating = 5.5
		assert.Error(t, f.Validate())
	})

	t.Run("DuplicateSlot", func(t *testing.T) {
		f := testField()
		f.Availability[1].StartTime = "19:00"
		f.Availability[1].EndTime = "20:30"
		assert.Error(t, f.Validate())
	})

	t.Run("StartNotBeforeEnd", func(t *testing.T) {
		f := testField()
		f.Availability[0].EndTime = "19:00"
		assert.Error(t, f.Validate())
	})
}

func TestField_Clone(t *testing.T) {
	f := testField()
	c := f.Clone()
	c.Availability[0].IsAvailable = false
	c.Amenities[0] = "Water"

	assert.True(t, f.Availability[0].IsAvailable)
	assert.Equal(t, "Parking", f.Amenities[0])
}

func TestField_Slot(t *testing.T) {
	f := testField()

	slot := f.Slot("2024-01-15", "20:00")
	require.NotNil(t, slot)
	assert.Equal(t, "1-2", slot.ID)
	assert.Equal(t, "21:00", slot.EndTime)

	assert.Nil(t, f.Slot("2024-01-16", "20:00"))
	assert.Nil(t, f.Slot("2024-01-15", "18:00"))
}

func TestBookingDraft_Validate(t *testing.T) {
	valid := BookingDraft{
		FieldID: "1", UserID: "user-1", Date: "2024-01-15",
		StartTime: "19:00", EndTime: "20:00", TotalPrice: 120, PlayerCount: 10,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(d *BookingDraft)
	}{
		{"MissingField", func(d *BookingDraft) { d.FieldID = "" }},
		{"MissingUser", func(d *BookingDraft) { d.UserID = "" }},
		{"BadDate", func(d *BookingDraft) { d.Date = "15/01/2024" }},
		{"EndBeforeStart", func(d *BookingDraft) { d.EndTime = "18:00" }},
		{"NegativePlayers", func(d *BookingDraft) { d.PlayerCount = -2 }},
		{"UnknownStatus", func(d *BookingDraft) { d.Status = "done" }},
		{"Cancelled", func(d *BookingDraft) { d.Status = StatusCancelled }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestSlotStart(t *testing.T) {
	ts, err := SlotStart("2024-01-15", "19:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 19, 30, 0, 0, time.UTC), ts)

	_, err = SlotStart("2024-01-15", "7pm", time.UTC)
	assert.Error(t, err)
}

func TestMapFilter_Defaults(t *testing.T) {
	f := DefaultMapFilter()
	assert.Equal(t, 0, f.ActiveFacets())
	assert.True(t, f.PriceRange.Contains(0))
	assert.True(t, f.PriceRange.Contains(DefaultMaxPrice))
	assert.False(t, f.PriceRange.Contains(DefaultMaxPrice+1))

	f.Rating = 4
	f.Types = []FieldType{FieldTypeGrass}
	assert.Equal(t, 2, f.ActiveFacets())
}

func TestUser_JSONRoundTrip(t *testing.T) {
	u := User{
		ID:             "user-1",
		Name:           "Joao",
		Email:          "joao@email.com",
		FavoriteFields: []string{},
		Bookings:       []Booking{},
		CreatedAt:      time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var got User
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, u, got)
	assert.NotNil(t, got.FavoriteFields)
	assert.NotNil(t, got.Bookings)
}
