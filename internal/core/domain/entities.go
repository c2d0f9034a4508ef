package domain

import (
	"fmt"
	"time"
)

// Agency represents a transit agency (e.g. Bilbobus, EuskoTren).
type Agency struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// Route represents a transit route. Shape is the path the route travels and
// is what its mileage is computed on.
type Route struct {
	ID        string    `json:"id"`
	RouteID   string    `json:"route_id"`
	AgencyID  string    `json:"agency_id"`
	ShortName string    `json:"short_name,omitempty"`
	LongName  string    `json:"long_name"`
	RouteType int       `json:"route_type"`
	Color     string    `json:"color"`
	TextColor string    `json:"text_color"`
	Shape     *Polyline `json:"shape,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MissingRegionPolicy decides what happens when a requested region name is
// absent from the region dataset.
type MissingRegionPolicy string

const (
	// MissingRegionSkip reports the region as unresolved with a warning.
	MissingRegionSkip MissingRegionPolicy = "skip"
	// MissingRegionFail fails the whole computation.
	MissingRegionFail MissingRegionPolicy = "fail"
)

// ParseMissingRegionPolicy parses a policy name.
func ParseMissingRegionPolicy(s string) (MissingRegionPolicy, error) {
	switch p := MissingRegionPolicy(s); p {
	case MissingRegionSkip, MissingRegionFail:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown missing region policy %q", ErrInvalidInput, s)
}
