package synth

import (
	"math"
	"testing"
	"time"

	"nadlan/server/config"
	"nadlan/server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestSynthesizer() *Synthesizer {
	return New(config.DefaultCityDirectory(), Config{TotalBudget: 100, MinPerCity: 3}, func() time.Time { return fixedNow })
}

func TestGenerate_HebrewCityAndAreaRange(t *testing.T) {
	s := newTestSynthesizer()
	criteria := models.SearchCriteria{
		Cities:  []string{"תל אביב-יפו"},
		MinArea: ptr(60.0),
		MaxArea: ptr(80.0),
	}

	result := s.Generate(criteria, NewRand(42))

	require.NotEmpty(t, result)
	for _, tx := range result {
		assert.Equal(t, "Tel Aviv-Yafo", tx.City)
		assert.Equal(t, config.DistrictTelAviv, tx.District)
		assert.GreaterOrEqual(t, tx.Area, 60.0)
		assert.LessOrEqual(t, tx.Area, 80.0)
		assert.Equal(t, models.SourceSynthetic, tx.Source)
	}
}

func TestGenerate_PriceInvariant(t *testing.T) {
	s := newTestSynthesizer()

	result := s.Generate(models.SearchCriteria{}, NewRand(7))

	require.NotEmpty(t, result)
	for _, tx := range result {
		require.Greater(t, tx.Area, 0.0)
		require.Greater(t, tx.DealAmount, 0.0)
		assert.True(t, tx.PriceConsistent(), "deal %s: %v / %v vs %v", tx.DealID, tx.DealAmount, tx.Area, tx.PricePerSqm)
	}
}

func TestGenerate_PriceWithinBaselineBand(t *testing.T) {
	s := newTestSynthesizer()
	directory := config.DefaultCityDirectory()

	result := s.Generate(models.SearchCriteria{Cities: []string{"Jerusalem"}}, NewRand(3))

	jerusalem, ok := directory.Resolve("Jerusalem")
	require.True(t, ok)
	require.NotNil(t, jerusalem.BasePricePerSqm)
	base := *jerusalem.BasePricePerSqm

	for _, tx := range result {
		// Rounding of amount and area may push slightly past the band edges
		assert.GreaterOrEqual(t, tx.PricePerSqm, base*minPriceFactor*0.99)
		assert.LessOrEqual(t, tx.PricePerSqm, base*maxPriceFactor*1.01)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	s := newTestSynthesizer()
	criteria := models.SearchCriteria{Districts: []string{config.DistrictHaifa}}

	first := s.Generate(criteria, NewRand(1234))
	second := s.Generate(criteria, NewRand(1234))

	assert.Equal(t, first, second)
}

func TestGenerate_SortedNewestFirst(t *testing.T) {
	s := newTestSynthesizer()

	result := s.Generate(models.SearchCriteria{}, NewRand(99))

	require.NotEmpty(t, result)
	for i := 1; i < len(result); i++ {
		assert.False(t, result[i].DealDate.After(result[i-1].DealDate), "index %d", i)
	}
	oldest := fixedNow.AddDate(0, 0, -historyDays)
	for _, tx := range result {
		assert.True(t, tx.DealDate.After(oldest))
		assert.False(t, tx.DealDate.After(fixedNow))
	}
}

func TestGenerate_Volume(t *testing.T) {
	directory := config.DefaultCityDirectory()

	t.Run("Budget spread across all cities", func(t *testing.T) {
		s := New(directory, Config{TotalBudget: 100, MinPerCity: 3}, func() time.Time { return fixedNow })
		result := s.Generate(models.SearchCriteria{}, NewRand(5))

		perCity := 100 / directory.Len()
		if perCity < 3 {
			perCity = 3
		}
		assert.Len(t, result, perCity*directory.Len())
	})

	t.Run("Single city gets the whole budget", func(t *testing.T) {
		s := New(directory, Config{TotalBudget: 40, MinPerCity: 3}, func() time.Time { return fixedNow })
		result := s.Generate(models.SearchCriteria{Cities: []string{"Haifa"}}, NewRand(5))
		assert.Len(t, result, 40)
	})

	t.Run("Minimum per city applies", func(t *testing.T) {
		s := New(directory, Config{TotalBudget: 1, MinPerCity: 4}, func() time.Time { return fixedNow })
		result := s.Generate(models.SearchCriteria{Cities: []string{"Haifa"}}, NewRand(5))
		assert.Len(t, result, 4)
	})
}

func TestCandidateCities(t *testing.T) {
	s := newTestSynthesizer()
	all := config.DefaultCityDirectory().Len()

	tests := []struct {
		name     string
		criteria models.SearchCriteria
		check    func(t *testing.T, cities []config.City)
	}{
		{
			name:     "No narrowing",
			criteria: models.SearchCriteria{},
			check: func(t *testing.T, cities []config.City) {
				assert.Len(t, cities, all)
			},
		},
		{
			name:     "English substring",
			criteria: models.SearchCriteria{Cities: []string{"haifa"}},
			check: func(t *testing.T, cities []config.City) {
				require.Len(t, cities, 1)
				assert.Equal(t, "Haifa", cities[0].Name)
			},
		},
		{
			name:     "District narrowing",
			criteria: models.SearchCriteria{Districts: []string{"jerusalem"}},
			check: func(t *testing.T, cities []config.City) {
				require.NotEmpty(t, cities)
				for _, city := range cities {
					assert.Equal(t, config.DistrictJerusalem, city.District)
				}
			},
		},
		{
			name:     "Unknown city falls back to the full directory",
			criteria: models.SearchCriteria{Cities: []string{"Atlantis"}},
			check: func(t *testing.T, cities []config.City) {
				assert.Len(t, cities, all)
			},
		},
		{
			name:     "City outside district falls back to the full directory",
			criteria: models.SearchCriteria{Cities: []string{"Haifa"}, Districts: []string{config.DistrictSouthern}},
			check: func(t *testing.T, cities []config.City) {
				assert.Len(t, cities, all)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, s.CandidateCities(tt.criteria))
		})
	}
}

func TestGenerate_HonorsConstraints(t *testing.T) {
	s := newTestSynthesizer()
	criteria := models.SearchCriteria{
		Cities:        []string{"Haifa"},
		PropertyTypes: []string{"penthouse", "duplex"},
		MinRooms:      ptr(3.0),
		MaxRooms:      ptr(4.0),
		Parking:       ptr(true),
		Warehouse:     ptr(false),
		VerifiedOnly:  true,
	}

	result := s.Generate(criteria, NewRand(11))

	require.NotEmpty(t, result)
	for _, tx := range result {
		assert.Contains(t, []string{"penthouse", "duplex"}, tx.PropertyType)
		assert.GreaterOrEqual(t, tx.Rooms, 3.0)
		assert.LessOrEqual(t, tx.Rooms, 4.0)
		assert.Equal(t, 0.0, math.Mod(tx.Rooms*2, 1), "rooms come in half steps")
		assert.True(t, tx.Parking)
		assert.False(t, tx.Warehouse)
		assert.True(t, tx.Verified)
		if tx.PropertyType == "penthouse" {
			assert.Equal(t, tx.TotalFloors, tx.Floor)
		}
	}
}

func TestGenerate_CoordinatesNearCityCenter(t *testing.T) {
	s := newTestSynthesizer()
	haifa, ok := config.DefaultCityDirectory().Resolve("Haifa")
	require.True(t, ok)

	result := s.Generate(models.SearchCriteria{Cities: []string{"Haifa"}}, NewRand(8))

	for _, tx := range result {
		require.NotNil(t, tx.Latitude)
		require.NotNil(t, tx.Longitude)
		assert.InDelta(t, haifa.Latitude, *tx.Latitude, coordinateJitter)
		assert.InDelta(t, haifa.Longitude, *tx.Longitude, coordinateJitter)
	}
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name           string
		min, max       *float64
		wantLo, wantHi float64
	}{
		{"Defaults", nil, nil, 45, 180},
		{"Both given", ptr(60.0), ptr(80.0), 60, 80},
		{"Only min inside default", ptr(100.0), nil, 100, 180},
		{"Only min above default", ptr(200.0), nil, 200, 335},
		{"Only max below default", nil, ptr(40.0), 20, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := bounds(tt.min, tt.max, 45, 180)
			assert.Equal(t, tt.wantLo, lo)
			assert.Equal(t, tt.wantHi, hi)
		})
	}
}
