// Package synth generates plausible transaction sets when no live source
// returned data. Output is random in content but its shape and invariants
// hold for any random source; a seeded *rand.Rand makes it reproducible.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"nadlan/server/config"
	"nadlan/server/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Market variance band applied to a city's baseline price per sqm
	minPriceFactor = 0.75
	maxPriceFactor = 1.25

	// Maximum coordinate jitter in degrees around the city center
	coordinateJitter = 0.025

	// Fallback baseline for cities without one
	defaultBasePricePerSqm = 20000.0

	defaultMinArea  = 45.0
	defaultMaxArea  = 180.0
	defaultMinRooms = 2.0
	defaultMaxRooms = 6.0

	verifiedProbability = 0.7
	historyDays         = 365
	oldestBuildYear     = 1960
)

// Probability of each amenity when the criteria leave it open
var amenityProbability = struct {
	parking, elevator, warehouse, balcony, renovated float64
}{
	parking:   0.7,
	elevator:  0.6,
	warehouse: 0.3,
	balcony:   0.75,
	renovated: 0.35,
}

type weightedType struct {
	name   string
	weight float64
}

// Default property type mix
var defaultTypes = []weightedType{
	{"apartment", 0.55},
	{"garden-apartment", 0.12},
	{"penthouse", 0.08},
	{"duplex", 0.10},
	{"office", 0.15},
}

var conditions = []string{"new", "renovated", "good", "needs-renovation"}

var streets = []string{
	"Herzl", "Rothschild", "Ben Yehuda", "Weizmann", "Jabotinsky", "Bialik",
	"HaNasi", "Ahad Ha'am", "Allenby", "Dizengoff", "Ben Gurion", "HaRav Kook",
	"Sokolov", "Arlozorov", "Begin", "HaPalmach", "Golda Meir", "Rabin",
}

// Config bounds the amount of generated data
type Config struct {
	TotalBudget int
	MinPerCity  int
}

// Synthesizer produces fallback transactions anchored to the city table
type Synthesizer struct {
	cities *config.CityDirectory
	cfg    Config
	now    func() time.Time
}

// New creates a synthesizer. A nil now uses time.Now.
func New(cities *config.CityDirectory, cfg Config, now func() time.Time) *Synthesizer {
	if cfg.TotalBudget <= 0 {
		cfg.TotalBudget = 100
	}
	if cfg.MinPerCity <= 0 {
		cfg.MinPerCity = 3
	}
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{cities: cities, cfg: cfg, now: now}
}

// NewRand returns a random source for one generation run. A zero seed
// draws one from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate returns synthetic transactions honoring the city, district,
// property type, area, rooms, amenity and verification constraints of
// criteria, newest first.
func (s *Synthesizer) Generate(criteria models.SearchCriteria, rng *rand.Rand) []models.Transaction {
	cities := s.CandidateCities(criteria)
	if len(cities) == 0 {
		return []models.Transaction{}
	}

	perCity := s.cfg.TotalBudget / len(cities)
	if perCity < s.cfg.MinPerCity {
		perCity = s.cfg.MinPerCity
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	transactions := make([]models.Transaction, 0, perCity*len(cities))
	for _, city := range cities {
		for i := 0; i < perCity; i++ {
			transactions = append(transactions, s.generateOne(city, criteria, rng, today))
		}
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].DealDate.After(transactions[j].DealDate)
	})
	return transactions
}

// CandidateCities narrows the directory by the criteria cities and then
// districts. When nothing is left the full directory is used.
func (s *Synthesizer) CandidateCities(criteria models.SearchCriteria) []config.City {
	all := s.cities.Cities()
	candidates := all

	if len(criteria.Cities) > 0 {
		candidates = filterCities(candidates, func(city config.City) bool {
			for _, query := range criteria.Cities {
				if s.cityMatches(city, query) {
					return true
				}
			}
			return false
		})
	}

	if len(criteria.Districts) > 0 {
		candidates = filterCities(candidates, func(city config.City) bool {
			for _, district := range criteria.Districts {
				if strings.EqualFold(strings.TrimSpace(district), city.District) {
					return true
				}
			}
			return false
		})
	}

	if len(candidates) == 0 {
		return all
	}
	return candidates
}

func (s *Synthesizer) cityMatches(city config.City, query string) bool {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return false
	}
	if strings.Contains(strings.ToLower(city.Name), needle) ||
		strings.Contains(strings.ToLower(city.LocalName), needle) {
		return true
	}
	resolved, ok := s.cities.Resolve(query)
	return ok && resolved.Code == city.Code
}

func filterCities(cities []config.City, keep func(config.City) bool) []config.City {
	var out []config.City
	for _, city := range cities {
		if keep(city) {
			out = append(out, city)
		}
	}
	return out
}

func (s *Synthesizer) generateOne(city config.City, c models.SearchCriteria, rng *rand.Rand, today time.Time) models.Transaction {
	propertyType := pickType(c.PropertyTypes, rng)

	minArea, maxArea := bounds(c.MinArea, c.MaxArea, defaultMinArea, defaultMaxArea)
	area := clamp(math.Round((minArea+rng.Float64()*(maxArea-minArea))*10)/10, minArea, maxArea)

	minRooms, maxRooms := bounds(c.MinRooms, c.MaxRooms, defaultMinRooms, defaultMaxRooms)
	rooms := pickRooms(minRooms, maxRooms, rng)

	basePrice := defaultBasePricePerSqm
	if city.BasePricePerSqm != nil {
		basePrice = *city.BasePricePerSqm
	}
	factor := minPriceFactor + rng.Float64()*(maxPriceFactor-minPriceFactor)

	areaDec := decimal.NewFromFloat(area)
	amount := areaDec.Mul(decimal.NewFromFloat(basePrice * factor)).Round(0)
	perSqm := amount.Div(areaDec).Round(0)

	dealDate := today.AddDate(0, 0, -rng.Intn(historyDays))

	totalFloors := 3 + rng.Intn(23)
	floor := rng.Intn(totalFloors + 1)
	switch propertyType {
	case "garden-apartment":
		floor = 0
	case "penthouse":
		floor = totalFloors
	}

	renovated := amenity(c.Renovated, amenityProbability.renovated, rng)
	condition := conditions[rng.Intn(len(conditions))]
	if renovated {
		condition = "renovated"
	}

	tx := models.Transaction{
		DealID:       "syn-" + uuid.Must(uuid.NewRandomFromReader(rng)).String(),
		DealDate:     dealDate,
		DealAmount:   amount.InexactFloat64(),
		PricePerSqm:  perSqm.InexactFloat64(),
		PropertyType: propertyType,
		Rooms:        rooms,
		Area:         area,
		Floor:        floor,
		TotalFloors:  totalFloors,
		BuildYear:    oldestBuildYear + rng.Intn(today.Year()-oldestBuildYear+1),
		Condition:    condition,
		City:         city.Name,
		District:     city.District,
		Street:       fmt.Sprintf("%s %d", streets[rng.Intn(len(streets))], 1+rng.Intn(120)),
		Block:        fmt.Sprintf("%d", 6000+rng.Intn(2000)),
		Parcel:       fmt.Sprintf("%d", 1+rng.Intn(400)),
		Parking:      amenity(c.Parking, amenityProbability.parking, rng),
		Elevator:     amenity(c.Elevator, amenityProbability.elevator, rng),
		Warehouse:    amenity(c.Warehouse, amenityProbability.warehouse, rng),
		Balcony:      amenity(c.Balcony, amenityProbability.balcony, rng),
		Renovated:    renovated,
		Verified:     c.VerifiedOnly || rng.Float64() < verifiedProbability,
		Source:       models.SourceSynthetic,
	}

	lat := city.Latitude + (rng.Float64()*2-1)*coordinateJitter
	lng := city.Longitude + (rng.Float64()*2-1)*coordinateJitter
	tx.Latitude = &lat
	tx.Longitude = &lng

	return tx
}

func pickType(requested []string, rng *rand.Rand) string {
	if len(requested) > 0 {
		return requested[rng.Intn(len(requested))]
	}

	r := rng.Float64()
	for _, t := range defaultTypes {
		if r < t.weight {
			return t.name
		}
		r -= t.weight
	}
	return defaultTypes[0].name
}

// pickRooms draws a room count in half-room steps within [lo, hi]
func pickRooms(lo, hi float64, rng *rand.Rand) float64 {
	steps := int(math.Floor((hi - lo) * 2))
	if steps <= 0 {
		return lo
	}
	return lo + float64(rng.Intn(steps+1))/2
}

// bounds resolves an optional range against defaults. A single given bound
// keeps the default span on the other side.
func bounds(min, max *float64, defMin, defMax float64) (float64, float64) {
	lo, hi := defMin, defMax
	switch {
	case min != nil && max != nil:
		lo, hi = *min, *max
	case min != nil:
		lo = *min
		if hi < lo {
			hi = lo + (defMax - defMin)
		}
	case max != nil:
		hi = *max
		if lo > hi {
			lo = hi / 2
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func amenity(explicit *bool, probability float64, rng *rand.Rand) bool {
	if explicit != nil {
		return *explicit
	}
	return rng.Float64() < probability
}
