package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"futmap/internal/domain"
	"futmap/internal/models"

	sq "github.com/Masterminds/squirrel"
)

var fieldColumns = []string{
	"id", "name", "address", "lat", "lng", "type", "size", "price", "price_unit",
	"rating", "total_ratings", "amenities", "images", "description", "phone", "email",
	"is_verified", "is_open",
}

// LoadFields returns the persisted catalog in its stored order.
func (db *DB) LoadFields(ctx context.Context) ([]models.Field, error) {
	query, args, err := psql.Select(fieldColumns...).From("fields").OrderBy("position").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("load fields", err)
	}

	var fields []models.Field
	index := make(map[string]int)
	for rows.Next() {
		var (
			f                 models.Field
			amenities, images string
			desc, phone, mail sql.NullString
		)
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Address, &f.Coordinates.Lat, &f.Coordinates.Lng,
			&f.Type, &f.Size, &f.Price, &f.PriceUnit, &f.Rating, &f.TotalRatings,
			&amenities, &images, &desc, &phone, &mail, &f.IsVerified, &f.IsOpen,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if err := json.Unmarshal([]byte(amenities), &f.Amenities); err != nil {
			rows.Close()
			return nil, fmt.Errorf("field %s amenities: %w", f.ID, err)
		}
		if err := json.Unmarshal([]byte(images), &f.Images); err != nil {
			rows.Close()
			return nil, fmt.Errorf("field %s images: %w", f.ID, err)
		}
		f.Description = desc.String
		f.Contact = models.Contact{Phone: phone.String, Email: mail.String}
		index[f.ID] = len(fields)
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	slots, err := db.loadSlots(ctx)
	if err != nil {
		return nil, err
	}
	for fieldID, list := range slots {
		if i, ok := index[fieldID]; ok {
			fields[i].Availability = list
		}
	}
	return fields, nil
}

func (db *DB) loadSlots(ctx context.Context) (map[string][]models.TimeSlot, error) {
	query, args, err := psql.
		Select("field_id", "slot_id", "date", "start_time", "end_time", "is_available", "price").
		From("time_slots").
		OrderBy("field_id", "position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("load slots", err)
	}
	defer rows.Close()

	out := make(map[string][]models.TimeSlot)
	for rows.Next() {
		var fieldID string
		var s models.TimeSlot
		if err := rows.Scan(&fieldID, &s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.IsAvailable, &s.Price); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out[fieldID] = append(out[fieldID], s)
	}
	return out, rows.Err()
}

// SaveFields replaces the stored catalog in one transaction.
func (db *DB) SaveFields(ctx context.Context, fields []models.Field) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin save fields", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"time_slots", "fields"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return classify("clear "+table, err)
		}
	}

	for pos := range fields {
		f := &fields[pos]
		amenities, err := json.Marshal(nonNil(f.Amenities))
		if err != nil {
			return err
		}
		images, err := json.Marshal(nonNil(f.Images))
		if err != nil {
			return err
		}

		query, args, err := psql.Insert("fields").
			Columns(append([]string{"position"}, fieldColumns...)...).
			Values(pos, f.ID, f.Name, f.Address, f.Coordinates.Lat, f.Coordinates.Lng,
				f.Type, f.Size, f.Price, f.PriceUnit, f.Rating, f.TotalRatings,
				string(amenities), string(images), f.Description, f.Contact.Phone, f.Contact.Email,
				f.IsVerified, f.IsOpen).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classify("insert field "+f.ID, err)
		}

		if len(f.Availability) == 0 {
			continue
		}
		slots := psql.Insert("time_slots").
			Columns("field_id", "slot_id", "position", "date", "start_time", "end_time", "is_available", "price")
		for i, s := range f.Availability {
			slots = slots.Values(f.ID, s.ID, i, s.Date, s.StartTime, s.EndTime, s.IsAvailable, s.Price)
		}
		query, args, err = slots.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classify("insert slots for "+f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit save fields", err)
	}
	db.logger.Info().Int("fields", len(fields)).Msg("Catalog saved")
	return nil
}

// SetSlotAvailability updates one slot; ErrNotFound when nothing matches.
func (db *DB) SetSlotAvailability(ctx context.Context, fieldID, date, startTime string, available bool) error {
	res, err := db.exec(ctx, "set slot availability", psql.Update("time_slots").
		Set("is_available", available).
		Where(sq.Eq{"field_id": fieldID, "date": date, "start_time": startTime}))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("slot %s %s %s: %w", fieldID, date, startTime, domain.ErrNotFound)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
