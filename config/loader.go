package config

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// cityTable is the on-disk format of a city table override
type cityTable struct {
	Cities []City `json:"cities"`
}

// LoadCityTable reads a city table from a JSON file. An empty path returns
// the built-in SupportedCities.
func LoadCityTable(path string) ([]City, error) {
	if path == "" {
		return SupportedCities, nil
	}

	// Get absolute path to config file
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read city table: %w", err)
	}

	var table cityTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse city table: %w", err)
	}

	if len(table.Cities) == 0 {
		return nil, fmt.Errorf("city table %s has no cities", absPath)
	}

	seen := make(map[int]bool, len(table.Cities))
	for _, city := range table.Cities {
		if city.Name == "" {
			return nil, fmt.Errorf("city with code %d has no name", city.Code)
		}
		if seen[city.Code] {
			return nil, fmt.Errorf("duplicate city code %d", city.Code)
		}
		seen[city.Code] = true
	}

	return table.Cities, nil
}

// LoadCityDirectory loads the city table at path and wraps it in a directory
func LoadCityDirectory(path string) (*CityDirectory, error) {
	cities, err := LoadCityTable(path)
	if err != nil {
		return nil, err
	}
	return NewCityDirectory(cities), nil
}
