package seed

import (
	"time"

	"futmap/internal/models"
)

const imageHost = "https://storage.googleapis.com/workspace-0f70711f-8b4e-4d94-86f1-2a93ccde5887/image/"

// DemoFields returns the built-in São Paulo catalog.
func DemoFields() []models.Field {
	return []models.Field{
		{
			ID:           "1",
			Name:         "Arena Sports Complex",
			Address:      "Rua das Palmeiras, 123 - Vila Madalena, São Paulo",
			Coordinates:  models.Coordinates{Lat: -23.5505, Lng: -46.6333},
			Type:         models.FieldTypeSynthetic,
			Size:         models.FieldSize7v7,
			Price:        120,
			PriceUnit:    models.PriceUnitHour,
			Rating:       4.5,
			TotalRatings: 127,
			Amenities:    []string{"Parking", "Changing Rooms", "Lighting", "Water"},
			Images: []string{
				imageHost + "7a6e77af-db61-4b1f-bc89-0bc0e352e6e6.png",
				imageHost + "01b1dfe8-699b-40df-98eb-61b3c016ff19.png",
			},
			Description: "Campo sintético profissional com iluminação LED e vestiários completos.",
			Availability: []models.TimeSlot{
				{ID: "1-1", Date: "2024-01-15", StartTime: "19:00", EndTime: "20:00", IsAvailable: true, Price: 120},
				{ID: "1-2", Date: "2024-01-15", StartTime: "20:00", EndTime: "21:00", IsAvailable: false, Price: 120},
				{ID: "1-3", Date: "2024-01-16", StartTime: "18:00", EndTime: "19:00", IsAvailable: true, Price: 120},
			},
			Contact:    models.Contact{Phone: "(11) 99999-9999", Email: "arena@sports.com"},
			IsVerified: true,
			IsOpen:     true,
		},
		{
			ID:           "2",
			Name:         "Campo do Parque",
			Address:      "Av. Paulista, 456 - Bela Vista, São Paulo",
			Coordinates:  models.Coordinates{Lat: -23.5615, Lng: -46.6560},
			Type:         models.FieldTypeGrass,
			Size:         models.FieldSize11v11,
			Price:        200,
			PriceUnit:    models.PriceUnitMatch,
			Rating:       4.2,
			TotalRatings: 89,
			Amenities:    []string{"Natural Grass", "Parking", "Snack Bar", "Scoreboard"},
			Images: []string{
				imageHost + "89784fcf-8026-4562-a892-21704953a8f5.png",
				imageHost + "dedac33c-eb63-41a9-a029-8c07cb4d44ac.png",
			},
			Description: "Campo de grama natural oficial com arquibancadas e placar eletrônico.",
			Availability: []models.TimeSlot{
				{ID: "2-1", Date: "2024-01-15", StartTime: "16:00", EndTime: "18:00", IsAvailable: true, Price: 200},
				{ID: "2-2", Date: "2024-01-16", StartTime: "14:00", EndTime: "16:00", IsAvailable: true, Price: 200},
			},
			Contact:    models.Contact{Phone: "(11) 88888-8888", Email: "campo@parque.com"},
			IsVerified: true,
			IsOpen:     true,
		},
		{
			ID:           "3",
			Name:         "Quadra Coberta Central",
			Address:      "Rua Augusta, 789 - Consolação, São Paulo",
			Coordinates:  models.Coordinates{Lat: -23.5556, Lng: -46.6627},
			Type:         models.FieldTypeIndoor,
			Size:         models.FieldSize5v5,
			Price:        80,
			PriceUnit:    models.PriceUnitHour,
			Rating:       4.0,
			TotalRatings: 203,
			Amenities:    []string{"Indoor", "Air Conditioning", "Sound System", "Parking"},
			Images: []string{
				imageHost + "5d130040-e6e9-4192-99e9-0fdc0a6b2f4b.png",
				imageHost + "ea9f7e20-36db-4af6-983a-70d2ff4fe0db.png",
			},
			Description: "Quadra coberta climatizada ideal para futsal e peladas.",
			Availability: []models.TimeSlot{
				{ID: "3-1", Date: "2024-01-15", StartTime: "18:00", EndTime: "19:00", IsAvailable: true, Price: 80},
				{ID: "3-2", Date: "2024-01-15", StartTime: "21:00", EndTime: "22:00", IsAvailable: true, Price: 80},
			},
			Contact:    models.Contact{Phone: "(11) 77777-7777", Email: "quadra@central.com"},
			IsVerified: false,
			IsOpen:     true,
		},
	}
}

// DemoBookings returns the demo user's booking history.
func DemoBookings() []models.Booking {
	return []models.Booking{
		{
			ID:          "booking-1",
			FieldID:     "1",
			FieldName:   "Arena Sports Complex",
			UserID:      "user-1",
			Date:        "2024-01-15",
			StartTime:   "19:00",
			EndTime:     "20:00",
			TotalPrice:  120,
			Status:      models.StatusConfirmed,
			CreatedAt:   time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			PlayerCount: 14,
			Notes:       "Pelada com os amigos do trabalho",
		},
	}
}

// DemoUser is the profile returned for the demo credentials.
func DemoUser() models.User {
	return models.User{
		ID:             "user-1",
		Name:           "João Silva",
		Email:          "joao@email.com",
		Phone:          "(11) 99999-9999",
		Avatar:         imageHost + "243a1de6-6d2d-453c-b0ea-b286bdd9ec9b.png",
		FavoriteFields: []string{"1", "2"},
		Bookings:       DemoBookings(),
		CreatedAt:      time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}
