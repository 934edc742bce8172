package models

// MarketStatistics is computed from a transaction set and never persisted.
type MarketStatistics struct {
	TotalTransactions int     `json:"total_transactions"`
	VerifiedCount     int     `json:"verified_count"`
	AvgPrice          float64 `json:"avg_price"`
	AvgArea           float64 `json:"avg_area"`
	AvgPricePerSqm    float64 `json:"avg_price_per_sqm"`
	MedianPricePerSqm float64 `json:"median_price_per_sqm"`
	MinPricePerSqm    float64 `json:"min_price_per_sqm"`
	MaxPricePerSqm    float64 `json:"max_price_per_sqm"`

	ByCity         map[string]GroupStats    `json:"by_city"`
	ByPropertyType map[string]GroupStats    `json:"by_property_type"`
	ByDistrict     map[string]DistrictStats `json:"by_district"`
	ByGeohash      map[string]DistrictStats `json:"by_geohash"`

	PriceRanges  []PriceBucket  `json:"price_ranges"`
	MonthlyTrend []MonthlyPoint `json:"monthly_trend"`
}

// GroupStats summarises one city or property type
type GroupStats struct {
	Count          int     `json:"count"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
	AvgArea        float64 `json:"avg_area"`
}

// DistrictStats summarises one district or geohash cell
type DistrictStats struct {
	Count          int     `json:"count"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
}

// PriceBucket is one histogram bar over deal amounts. Max is nil for the
// open-ended top bucket.
type PriceBucket struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max,omitempty"`
	Count int      `json:"count"`
}

// MonthlyPoint is one entry of the monthly trend, Month formatted as YYYY-MM.
type MonthlyPoint struct {
	Month          string  `json:"month"`
	Count          int     `json:"count"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
}
