package models

import "time"

// SearchCriteria is the caller supplied constraint set for a search.
// Nil pointers and empty lists impose no constraint.
type SearchCriteria struct {
	Cities        []string `json:"cities,omitempty"`
	Districts     []string `json:"districts,omitempty"`
	PropertyTypes []string `json:"property_types,omitempty"`

	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	MinArea  *float64 `json:"min_area,omitempty"`
	MaxArea  *float64 `json:"max_area,omitempty"`
	MinRooms *float64 `json:"min_rooms,omitempty"`
	MaxRooms *float64 `json:"max_rooms,omitempty"`

	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	Parking   *bool `json:"parking,omitempty"`
	Elevator  *bool `json:"elevator,omitempty"`
	Warehouse *bool `json:"warehouse,omitempty"`
	Balcony   *bool `json:"balcony,omitempty"`
	Renovated *bool `json:"renovated,omitempty"`

	VerifiedOnly bool `json:"verified_only,omitempty"`

	Block  string `json:"block,omitempty"`
	Parcel string `json:"parcel,omitempty"`

	CenterLat *float64 `json:"center_lat,omitempty"`
	CenterLng *float64 `json:"center_lng,omitempty"`
	RadiusKm  *float64 `json:"radius_km,omitempty" binding:"omitempty,gt=0"`

	Limit  *int `json:"limit,omitempty" binding:"omitempty,gte=0"`
	Offset int  `json:"offset,omitempty" binding:"gte=0"`
}

// HasGeoRadius reports whether a center point and radius were both supplied.
func (c SearchCriteria) HasGeoRadius() bool {
	return c.CenterLat != nil && c.CenterLng != nil && c.RadiusKm != nil
}
