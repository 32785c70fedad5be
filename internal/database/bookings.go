package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"futmap/internal/domain"
	"futmap/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var bookingColumns = []string{
	"id", "field_id", "field_name", "user_id", "date", "start_time", "end_time",
	"total_price", "status", "created_at", "player_count", "notes",
}

func (db *DB) InsertBooking(ctx context.Context, booking *models.Booking) error {
	_, err := db.exec(ctx, "insert booking", psql.Insert("bookings").
		Columns(bookingColumns...).
		Values(booking.ID, booking.FieldID, booking.FieldName, booking.UserID, booking.Date,
			booking.StartTime, booking.EndTime, booking.TotalPrice, booking.Status,
			booking.CreatedAt.UTC(), booking.PlayerCount, booking.Notes))
	if err != nil && isUniqueViolation(err) {
		return domain.Validation("booking %s already exists", booking.ID)
	}
	return err
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).From("bookings").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	booking, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, classify("get booking", err)
	}
	return booking, nil
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	res, err := db.exec(ctx, "update booking status", psql.Update("bookings").
		Set("status", status).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListUserBookings returns the user's bookings, most recent first.
func (db *DB) ListUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	return db.listBookings(ctx, sq.Eq{"user_id": userID})
}

func (db *DB) listBookings(ctx context.Context, where sq.Sqlizer) ([]models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("bookings").
		Where(where).
		OrderBy("seq DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list bookings", err)
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list bookings", err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b         models.Booking
		notes     sql.NullString
		createdAt time.Time
	)
	if err := row.Scan(&b.ID, &b.FieldID, &b.FieldName, &b.UserID, &b.Date, &b.StartTime, &b.EndTime,
		&b.TotalPrice, &b.Status, &createdAt, &b.PlayerCount, &notes); err != nil {
		return nil, err
	}
	b.CreatedAt = createdAt.UTC()
	b.Notes = notes.String
	return &b, nil
}
