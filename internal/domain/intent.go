package domain

// PropertyType is the requested category of property.
type PropertyType string

const (
	PropertyTypeVilla     PropertyType = "Villa"
	PropertyTypeApartment PropertyType = "Apartment"
	PropertyTypePenthouse PropertyType = "Penthouse"
	PropertyTypeStudio    PropertyType = "Studio"
)

// Status is the requested completion status.
type Status string

const (
	StatusOffPlan Status = "Off-plan"
	StatusReady   Status = "Ready"
)

// Intent holds the search criteria extracted from a free-text query.
// A nil field means "no constraint on this dimension". Zero bedrooms means studio.
type Intent struct {
	MaxBudget    *float64      `json:"max_budget"`
	MinBedrooms  *int          `json:"min_bedrooms"`
	PropertyType *PropertyType `json:"property_type"`
	Location     *string       `json:"location"`
	Status       *Status       `json:"status"`
}

// IsEmpty reports whether no criteria were extracted.
func (i Intent) IsEmpty() bool {
	return i.MaxBudget == nil && i.MinBedrooms == nil && i.PropertyType == nil &&
		i.Location == nil && i.Status == nil
}

// HasLocation reports whether a non-empty location was requested.
func (i Intent) HasLocation() bool {
	return i.Location != nil && *i.Location != ""
}
