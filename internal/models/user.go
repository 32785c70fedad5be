package models

import "time"

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Avatar         string    `json:"avatar,omitempty"`
	FavoriteFields []string  `json:"favorite_fields"`
	Bookings       []Booking `json:"bookings"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsFavorite reports whether fieldID is in the user's favorites.
func (u *User) IsFavorite(fieldID string) bool {
	for _, id := range u.FavoriteFields {
		if id == fieldID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	out := u
	out.FavoriteFields = append(make([]string, 0, len(u.FavoriteFields)), u.FavoriteFields...)
	out.Bookings = append(make([]Booking, 0, len(u.Bookings)), u.Bookings...)
	return out
}
