package filter

import (
	"strings"

	"nadlan/server/config"
	"nadlan/server/internal/geometry"
	"nadlan/server/internal/models"

	"github.com/paulmach/orb"
)

// Engine applies SearchCriteria to transaction sets. It holds no state
// besides the read-only city directory used to match city names.
type Engine struct {
	cities *config.CityDirectory
}

// NewEngine creates a filter engine resolving city names against cities
func NewEngine(cities *config.CityDirectory) *Engine {
	return &Engine{cities: cities}
}

// Apply returns the transactions matching every constraint set in criteria.
// Pagination and geo radius are not applied here.
func (e *Engine) Apply(transactions []models.Transaction, criteria models.SearchCriteria) []models.Transaction {
	m := e.newMatcher(criteria)

	filtered := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if m.matches(tx) {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// Matches reports whether a single transaction satisfies criteria
func (e *Engine) Matches(tx models.Transaction, criteria models.SearchCriteria) bool {
	return e.newMatcher(criteria).matches(tx)
}

// ByRadius keeps the transactions within radiusKm of the center point.
// Transactions without coordinates are dropped.
func ByRadius(transactions []models.Transaction, centerLat, centerLng, radiusKm float64) []models.Transaction {
	center := orb.Point{centerLng, centerLat}

	filtered := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		point, ok := tx.Point()
		if !ok {
			continue
		}
		if geometry.DistanceKm(center, point) <= radiusKm {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// Paginate slices transactions by offset and limit. A nil limit returns
// everything from offset on.
func Paginate(transactions []models.Transaction, offset int, limit *int) []models.Transaction {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(transactions) {
		return []models.Transaction{}
	}
	end := len(transactions)
	if limit != nil && *limit >= 0 && offset+*limit < end {
		end = offset + *limit
	}
	return transactions[offset:end]
}

// matcher holds criteria with its name lists pre-normalized
type matcher struct {
	engine    *Engine
	criteria  models.SearchCriteria
	cities    map[string]bool
	districts map[string]bool
	types     map[string]bool
}

func (e *Engine) newMatcher(criteria models.SearchCriteria) *matcher {
	m := &matcher{engine: e, criteria: criteria}

	if len(criteria.Cities) > 0 {
		m.cities = make(map[string]bool, len(criteria.Cities)*2)
		for _, name := range criteria.Cities {
			m.cities[config.NormalizeCity(name)] = true
			if e.cities != nil {
				if city, ok := e.cities.Resolve(name); ok {
					m.cities[config.NormalizeCity(city.Name)] = true
				}
			}
		}
	}
	if len(criteria.Districts) > 0 {
		m.districts = make(map[string]bool, len(criteria.Districts))
		for _, district := range criteria.Districts {
			m.districts[strings.ToLower(strings.TrimSpace(district))] = true
		}
	}
	if len(criteria.PropertyTypes) > 0 {
		m.types = make(map[string]bool, len(criteria.PropertyTypes))
		for _, propertyType := range criteria.PropertyTypes {
			m.types[strings.ToLower(strings.TrimSpace(propertyType))] = true
		}
	}
	return m
}

func (m *matcher) matches(tx models.Transaction) bool {
	c := m.criteria

	// Check price range
	if c.MinPrice != nil && tx.DealAmount < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && tx.DealAmount > *c.MaxPrice {
		return false
	}

	// Check area range
	if c.MinArea != nil && tx.Area < *c.MinArea {
		return false
	}
	if c.MaxArea != nil && tx.Area > *c.MaxArea {
		return false
	}

	// Check number of rooms
	if c.MinRooms != nil && tx.Rooms < *c.MinRooms {
		return false
	}
	if c.MaxRooms != nil && tx.Rooms > *c.MaxRooms {
		return false
	}

	if c.VerifiedOnly && !tx.Verified {
		return false
	}

	if !boolMatches(c.Parking, tx.Parking) ||
		!boolMatches(c.Elevator, tx.Elevator) ||
		!boolMatches(c.Warehouse, tx.Warehouse) ||
		!boolMatches(c.Balcony, tx.Balcony) ||
		!boolMatches(c.Renovated, tx.Renovated) {
		return false
	}

	if c.DateFrom != nil && tx.DealDate.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && tx.DealDate.After(*c.DateTo) {
		return false
	}

	if c.Block != "" && tx.Block != c.Block {
		return false
	}
	if c.Parcel != "" && tx.Parcel != c.Parcel {
		return false
	}

	if m.cities != nil && !m.cities[config.NormalizeCity(tx.City)] {
		return false
	}
	if m.districts != nil && !m.districts[strings.ToLower(m.districtOf(tx))] {
		return false
	}
	if m.types != nil && !m.types[strings.ToLower(tx.PropertyType)] {
		return false
	}

	return true
}

// districtOf falls back to the directory when a record carries no district
func (m *matcher) districtOf(tx models.Transaction) string {
	if tx.District != "" || m.engine.cities == nil {
		return tx.District
	}
	if city, ok := m.engine.cities.Resolve(tx.City); ok {
		return city.District
	}
	return ""
}

func boolMatches(want *bool, got bool) bool {
	return want == nil || *want == got
}
