package models

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Source identifies where a transaction record came from
type Source string

const (
	SourceRegistry         Source = "registry"
	SourceCadastre         Source = "cadastre"
	SourceTaxAuthority     Source = "tax-authority"
	SourceStatisticsBureau Source = "statistics-bureau"
	SourceSynthetic        Source = "synthetic"
)

// PricePerSqmTolerance is the relative error allowed between
// PricePerSqm*Area and DealAmount.
const PricePerSqmTolerance = 0.01

// Transaction is a single recorded sale. It is never mutated after creation.
type Transaction struct {
	DealID       string    `json:"deal_id" validate:"required"`
	DealDate     time.Time `json:"deal_date" validate:"required"`
	DealAmount   float64   `json:"deal_amount" validate:"gt=0"`
	PricePerSqm  float64   `json:"price_per_sqm" validate:"gt=0"`
	PropertyType string    `json:"property_type"`
	Rooms        float64   `json:"rooms" validate:"gte=0"`
	Area         float64   `json:"area" validate:"gt=0"`
	Floor        int       `json:"floor"`
	TotalFloors  int       `json:"total_floors" validate:"gte=0"`
	BuildYear    int       `json:"build_year" validate:"gte=0"`
	Condition    string    `json:"condition"`

	City     string `json:"city" validate:"required"`
	District string `json:"district"`
	Street   string `json:"street"`
	Block    string `json:"block,omitempty"`
	Parcel   string `json:"parcel,omitempty"`

	Parking   bool `json:"parking"`
	Elevator  bool `json:"elevator"`
	Warehouse bool `json:"warehouse"`
	Balcony   bool `json:"balcony"`
	Renovated bool `json:"renovated"`

	Verified bool   `json:"verified"`
	Source   Source `json:"source" validate:"required"`

	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// Point returns the transaction location as an orb point (lng, lat).
// The second return value is false when coordinates are missing.
func (t Transaction) Point() (orb.Point, bool) {
	if t.Latitude == nil || t.Longitude == nil {
		return orb.Point{}, false
	}
	return orb.Point{*t.Longitude, *t.Latitude}, true
}

// PriceConsistent reports whether PricePerSqm matches DealAmount / Area
// within PricePerSqmTolerance.
func (t Transaction) PriceConsistent() bool {
	if t.DealAmount <= 0 || t.Area <= 0 {
		return false
	}
	return math.Abs(t.PricePerSqm*t.Area-t.DealAmount)/t.DealAmount < PricePerSqmTolerance
}
