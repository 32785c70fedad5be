package models

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r PriceRange) Contains(price float64) bool {
	return r.Min <= price && price <= r.Max
}

// AvailabilityWindow restricts a filter to fields with a free slot on Date
// whose interval lies within [StartTime, EndTime].
type AvailabilityWindow struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// MapFilter is a multi-facet query over the field catalog.
type MapFilter struct {
	Types        []FieldType         `json:"types"`
	Sizes        []FieldSize         `json:"sizes"`
	PriceRange   PriceRange          `json:"price_range"`
	Rating       float64             `json:"rating"`
	Amenities    []string            `json:"amenities"`
	Availability *AvailabilityWindow `json:"availability,omitempty"`
}

// DefaultMapFilter matches every field priced up to DefaultMaxPrice.
func DefaultMapFilter() MapFilter {
	return MapFilter{
		PriceRange: PriceRange{Min: 0, Max: DefaultMaxPrice},
	}
}

// ActiveFacets counts the facets a user narrowed explicitly.
func (f *MapFilter) ActiveFacets() int {
	n := len(f.Types) + len(f.Sizes) + len(f.Amenities)
	if f.Rating > 0 {
		n++
	}
	if f.Availability != nil {
		n++
	}
	return n
}
