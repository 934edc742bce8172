package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByNameOrCode(t *testing.T) {
	dir := DefaultCityDirectory()

	tests := []struct {
		name          string
		query         string
		expectedNames []string
	}{
		{
			name:          "English name",
			query:         "Haifa",
			expectedNames: []string{"Haifa"},
		},
		{
			name:          "Case insensitive substring",
			query:         "tel aviv",
			expectedNames: []string{"Tel Aviv-Yafo"},
		},
		{
			name:          "Local name",
			query:         "ירושלים",
			expectedNames: []string{"Jerusalem"},
		},
		{
			name:          "Exact code",
			query:         "4000",
			expectedNames: []string{"Haifa"},
		},
		{
			name:          "Substring matching several cities",
			query:         "ram",
			expectedNames: []string{"Ramat Gan"},
		},
		{
			name:          "Unknown city",
			query:         "Springfield",
			expectedNames: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, city := range dir.FindByNameOrCode(tt.query) {
				names = append(names, city.Name)
			}
			assert.ElementsMatch(t, tt.expectedNames, names)
		})
	}
}

func TestFindByNameOrCode_EmptyQueryReturnsAll(t *testing.T) {
	dir := DefaultCityDirectory()
	assert.Len(t, dir.FindByNameOrCode("  "), len(SupportedCities))
}

func TestCities_KeepsTableOrder(t *testing.T) {
	dir := DefaultCityDirectory()
	cities := dir.Cities()

	require.Len(t, cities, len(SupportedCities))
	for i := range cities {
		assert.Equal(t, SupportedCities[i].Code, cities[i].Code)
	}

	// Returned slice is a copy
	cities[0].Name = "changed"
	assert.Equal(t, "Tel Aviv-Yafo", dir.Cities()[0].Name)
}

func TestResolve(t *testing.T) {
	dir := DefaultCityDirectory()

	tests := []struct {
		input    string
		expected string
		found    bool
	}{
		{"Tel Aviv-Yafo", "Tel Aviv-Yafo", true},
		{"תל אביב-יפו", "Tel Aviv-Yafo", true},
		{"TEL AVIV", "Tel Aviv-Yafo", true},
		{"Beer Sheva", "Beersheba", true},
		{"Raanana", "Ra'anana", true},
		{"9000", "Beersheba", true},
		{"Springfield", "", false},
		{"", "", false},
		{"12345", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			city, ok := dir.Resolve(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, city.Name)
		})
	}
}

func TestDistricts(t *testing.T) {
	dir := DefaultCityDirectory()
	assert.ElementsMatch(t, []string{
		DistrictTelAviv, DistrictJerusalem, DistrictHaifa,
		DistrictCentral, DistrictSouthern, DistrictNorthern,
	}, dir.Districts())
}

func TestSupportedCities_HaveBaseline(t *testing.T) {
	for _, city := range SupportedCities {
		require.NotNil(t, city.BasePricePerSqm, city.Name)
		assert.Greater(t, *city.BasePricePerSqm, 0.0, city.Name)
		assert.NotEmpty(t, city.District, city.Name)
		assert.InDelta(t, 31.5, city.Latitude, 3, city.Name)
		assert.InDelta(t, 34.9, city.Longitude, 1, city.Name)
	}
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple city name",
			input:    "Haifa",
			expected: "haifa",
		},
		{
			name:     "City name with hyphen",
			input:    "Tel Aviv-Yafo",
			expected: "tel aviv yafo",
		},
		{
			name:     "City name with apostrophe",
			input:    "Ra'anana",
			expected: "raanana",
		},
		{
			name:     "Hebrew with geresh",
			input:    "ק׳ גת",
			expected: "ק גת",
		},
		{
			name:     "Multiple spaces",
			input:    "Rishon   LeZion ",
			expected: "rishon lezion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeCity(tt.input)
			assert.Equal(t, tt.expected, result,
				"NormalizeCity(%q) = %q, want %q", tt.input, result, tt.expected)
		})
	}
}

func TestLoadCityTable(t *testing.T) {
	t.Run("Empty path uses built-in table", func(t *testing.T) {
		cities, err := LoadCityTable("")
		require.NoError(t, err)
		assert.Equal(t, SupportedCities, cities)
	})

	t.Run("Override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cities.json")
		body := `{"cities":[{"code":1,"name":"Testville","local_name":"טסט","district":"Central","latitude":32,"longitude":34.8,"base_price_per_sqm":10000}]}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		dir, err := LoadCityDirectory(path)
		require.NoError(t, err)
		require.Equal(t, 1, dir.Len())

		city, ok := dir.Resolve("טסט")
		assert.True(t, ok)
		assert.Equal(t, "Testville", city.Name)
		assert.InDelta(t, 10000, *city.BasePricePerSqm, 0.0001)
	})

	t.Run("Duplicate codes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cities.json")
		body := `{"cities":[{"code":1,"name":"A"},{"code":1,"name":"B"}]}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		_, err := LoadCityTable(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate city code")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadCityTable(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Aggregator.MinInterval)
	assert.Equal(t, 100, cfg.Synthesis.TotalBudget)
	assert.Equal(t, 3, cfg.Synthesis.MinPerCity)
	assert.Equal(t, []float64{1000000, 2000000, 3000000, 5000000}, cfg.Statistics.PriceBuckets)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 64, cfg.CacheWriter.QueueSize)
	assert.Equal(t, 2, cfg.CacheWriter.WorkerCount)
	assert.Equal(t, 500*time.Millisecond, cfg.CacheWriter.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.PurgeInterval)
	assert.Zero(t, cfg.Scheduler.WarmInterval)
	assert.Empty(t, cfg.Scheduler.WarmCities)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SOURCE_TIMEOUT", "5s")
	t.Setenv("SYNTH_SEED", "42")
	t.Setenv("PRICE_BUCKETS", "500000,1500000")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CACHE_WARM_CITIES", "Tel Aviv,Haifa")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, int64(42), cfg.Synthesis.Seed)
	assert.Equal(t, []float64{500000, 1500000}, cfg.Statistics.PriceBuckets)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, []string{"Tel Aviv", "Haifa"}, cfg.Scheduler.WarmCities)
}
