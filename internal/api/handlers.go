package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"futmap/internal/domain"
	"futmap/internal/models"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var facetParams = []string{"type", "size", "min_price", "max_price", "rating", "amenities", "date", "start", "end"}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/v1/fields?q=...&type=...
func (s *HTTPServer) handleListFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var fields []models.Field
	if hasFacets(query) {
		criteria, err := parseMapFilter(query)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		fields = s.catalog.Filter(ctx, criteria)
	} else {
		fields = s.catalog.ListAll(ctx)
	}

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		fields = intersect(fields, s.catalog.Search(ctx, q))
	}

	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (s *HTTPServer) handleGetField(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	field, ok := s.catalog.GetByID(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "field not found")
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (s *HTTPServer) handleFieldAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if _, err := time.Parse(models.DateFormat, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	if _, ok := s.catalog.GetByID(ctx, id); !ok {
		writeError(w, http.StatusNotFound, "field not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"field_id": id,
		"date":     date,
		"slots":    s.catalog.Availability(ctx, id, date),
	})
}

// POST /api/v1/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var draft models.BookingDraft
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.ledger.Create(r.Context(), draft)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.ledger.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// POST /api/v1/bookings/{id}/cancel
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cancelled, err := s.ledger.Cancel(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "cancelled": cancelled})
}

// GET /api/v1/users/{id}/bookings?status=confirmed
func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["id"]

	var (
		bookings []models.Booking
		err      error
	)
	if st := strings.TrimSpace(r.URL.Query().Get("status")); st != "" {
		bookings, err = s.ledger.ListByStatus(ctx, userID, models.BookingStatus(st))
	} else {
		bookings, err = s.ledger.ListForUser(ctx, userID)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.ledger.Upcoming(r.Context(), mux.Vars(r)["id"], s.now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "export is disabled")
		return
	}

	userID := mux.Vars(r)["id"]
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bookings_"+userID+".xlsx"))

	if err := s.exporter.WriteUserBookings(r.Context(), w, userID); err != nil {
		// Заголовки уже могли уйти клиенту, поэтому только логируем.
		s.log.Error().Err(err).Str("user_id", userID).Msg("export failed")
	}
}

func hasFacets(q url.Values) bool {
	for _, p := range facetParams {
		if q.Get(p) != "" {
			return true
		}
	}
	return false
}

func parseMapFilter(q url.Values) (models.MapFilter, error) {
	criteria := models.DefaultMapFilter()

	for _, raw := range splitCSV(q.Get("type")) {
		t := models.FieldType(raw)
		if !t.Valid() {
			return criteria, domain.Validation("unknown field type %q", raw)
		}
		criteria.Types = append(criteria.Types, t)
	}
	for _, raw := range splitCSV(q.Get("size")) {
		sz := models.FieldSize(raw)
		if !sz.Valid() {
			return criteria, domain.Validation("unknown field size %q", raw)
		}
		criteria.Sizes = append(criteria.Sizes, sz)
	}

	var err error
	if criteria.PriceRange.Min, err = parseFloat(q, "min_price", criteria.PriceRange.Min); err != nil {
		return criteria, err
	}
	if criteria.PriceRange.Max, err = parseFloat(q, "max_price", criteria.PriceRange.Max); err != nil {
		return criteria, err
	}
	if criteria.Rating, err = parseFloat(q, "rating", 0); err != nil {
		return criteria, err
	}
	criteria.Amenities = splitCSV(q.Get("amenities"))

	date := strings.TrimSpace(q.Get("date"))
	start := strings.TrimSpace(q.Get("start"))
	end := strings.TrimSpace(q.Get("end"))
	if date == "" && (start != "" || end != "") {
		return criteria, domain.Validation("start/end require date")
	}
	if date != "" {
		if _, err := time.Parse(models.DateFormat, date); err != nil {
			return criteria, domain.Validation("invalid date %q", date)
		}
		for _, v := range []string{start, end} {
			if v == "" {
				continue
			}
			if _, err := time.Parse(models.TimeFormat, v); err != nil {
				return criteria, domain.Validation("invalid time %q", v)
			}
		}
		criteria.Availability = &models.AvailabilityWindow{Date: date, StartTime: start, EndTime: end}
	}

	return criteria, nil
}

func parseFloat(q url.Values, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, domain.Validation("invalid %s %q", key, raw)
	}
	return v, nil
}

// intersect keeps the fields of a that also appear in b, in a's order.
func intersect(a, b []models.Field) []models.Field {
	ids := make(map[string]bool, len(b))
	for i := range b {
		ids[b[i].ID] = true
	}
	out := make([]models.Field, 0, len(a))
	for i := range a {
		if ids[a[i].ID] {
			out = append(out, a[i])
		}
	}
	return out
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
