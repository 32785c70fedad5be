package catalog

import (
	"futmap/internal/models"
)

func matches(f *models.Field, c *models.MapFilter) bool {
	if len(c.Types) > 0 && !containsType(c.Types, f.Type) {
		return false
	}
	if len(c.Sizes) > 0 && !containsSize(c.Sizes, f.Size) {
		return false
	}
	if !c.PriceRange.Contains(f.Price) {
		return false
	}
	if f.Rating < c.Rating {
		return false
	}
	// amenities: any one is enough
	if len(c.Amenities) > 0 && !hasAnyAmenity(f, c.Amenities) {
		return false
	}
	if c.Availability != nil && !hasFreeSlotIn(f, c.Availability) {
		return false
	}
	return true
}

func containsType(types []models.FieldType, t models.FieldType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsSize(sizes []models.FieldSize, s models.FieldSize) bool {
	for _, v := range sizes {
		if v == s {
			return true
		}
	}
	return false
}

func hasAnyAmenity(f *models.Field, amenities []string) bool {
	for _, a := range amenities {
		if f.HasAmenity(a) {
			return true
		}
	}
	return false
}

// hasFreeSlotIn reports an available slot on w.Date within [w.StartTime, w.EndTime].
// Empty bounds are open. "15:04" strings compare correctly as text.
func hasFreeSlotIn(f *models.Field, w *models.AvailabilityWindow) bool {
	for _, s := range f.Availability {
		if !s.IsAvailable || s.Date != w.Date {
			continue
		}
		if w.StartTime != "" && s.StartTime < w.StartTime {
			continue
		}
		if w.EndTime != "" && s.EndTime > w.EndTime {
			continue
		}
		return true
	}
	return false
}
