package config

import (
	"strconv"
	"strings"
)

// City represents a municipality known to the service
type City struct {
	Code            int      `json:"code"`
	Name            string   `json:"name"`
	LocalName       string   `json:"local_name"`
	Aliases         []string `json:"aliases,omitempty"`
	District        string   `json:"district"`
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Population      *int     `json:"population,omitempty"`
	BasePricePerSqm *float64 `json:"base_price_per_sqm,omitempty"`
}

// Districts used by the national statistics
const (
	DistrictJerusalem = "Jerusalem"
	DistrictNorthern  = "Northern"
	DistrictHaifa     = "Haifa"
	DistrictCentral   = "Central"
	DistrictTelAviv   = "Tel Aviv"
	DistrictSouthern  = "Southern"
)

// SupportedCities is the static city table. Base prices are NIS per square
// meter and only seed synthetic data.
var SupportedCities = []City{
	{Code: 5000, Name: "Tel Aviv-Yafo", LocalName: "תל אביב-יפו", Aliases: []string{"Tel Aviv", "Tel Aviv Yafo", "תל אביב", "תל-אביב"}, District: DistrictTelAviv, Latitude: 32.0853, Longitude: 34.7818, Population: intPtr(475000), BasePricePerSqm: floatPtr(62000)},
	{Code: 3000, Name: "Jerusalem", LocalName: "ירושלים", District: DistrictJerusalem, Latitude: 31.7683, Longitude: 35.2137, Population: intPtr(980000), BasePricePerSqm: floatPtr(40000)},
	{Code: 4000, Name: "Haifa", LocalName: "חיפה", District: DistrictHaifa, Latitude: 32.7940, Longitude: 34.9896, Population: intPtr(290000), BasePricePerSqm: floatPtr(19000)},
	{Code: 8300, Name: "Rishon LeZion", LocalName: "ראשון לציון", Aliases: []string{"Rishon Lezion", "Rishon Le Zion"}, District: DistrictCentral, Latitude: 31.9730, Longitude: 34.7925, Population: intPtr(260000), BasePricePerSqm: floatPtr(31000)},
	{Code: 7900, Name: "Petah Tikva", LocalName: "פתח תקווה", Aliases: []string{"Petach Tikva", "פתח תקוה"}, District: DistrictCentral, Latitude: 32.0840, Longitude: 34.8878, Population: intPtr(255000), BasePricePerSqm: floatPtr(30000)},
	{Code: 70, Name: "Ashdod", LocalName: "אשדוד", District: DistrictSouthern, Latitude: 31.8044, Longitude: 34.6553, Population: intPtr(230000), BasePricePerSqm: floatPtr(24000)},
	{Code: 7400, Name: "Netanya", LocalName: "נתניה", District: DistrictCentral, Latitude: 32.3215, Longitude: 34.8532, Population: intPtr(230000), BasePricePerSqm: floatPtr(29000)},
	{Code: 9000, Name: "Beersheba", LocalName: "באר שבע", Aliases: []string{"Beer Sheva", "Be'er Sheva"}, District: DistrictSouthern, Latitude: 31.2518, Longitude: 34.7913, Population: intPtr(215000), BasePricePerSqm: floatPtr(15000)},
	{Code: 6600, Name: "Holon", LocalName: "חולון", District: DistrictTelAviv, Latitude: 32.0158, Longitude: 34.7874, Population: intPtr(200000), BasePricePerSqm: floatPtr(31000)},
	{Code: 6100, Name: "Bnei Brak", LocalName: "בני ברק", District: DistrictTelAviv, Latitude: 32.0807, Longitude: 34.8338, Population: intPtr(210000), BasePricePerSqm: floatPtr(33000)},
	{Code: 8600, Name: "Ramat Gan", LocalName: "רמת גן", District: DistrictTelAviv, Latitude: 32.0823, Longitude: 34.8107, Population: intPtr(170000), BasePricePerSqm: floatPtr(42000)},
	{Code: 6200, Name: "Bat Yam", LocalName: "בת ים", District: DistrictTelAviv, Latitude: 32.0171, Longitude: 34.7454, Population: intPtr(130000), BasePricePerSqm: floatPtr(29000)},
	{Code: 8400, Name: "Rehovot", LocalName: "רחובות", District: DistrictCentral, Latitude: 31.8928, Longitude: 34.8113, Population: intPtr(150000), BasePricePerSqm: floatPtr(27000)},
	{Code: 7100, Name: "Ashkelon", LocalName: "אשקלון", District: DistrictSouthern, Latitude: 31.6688, Longitude: 34.5743, Population: intPtr(150000), BasePricePerSqm: floatPtr(18000)},
	{Code: 6400, Name: "Herzliya", LocalName: "הרצליה", District: DistrictTelAviv, Latitude: 32.1663, Longitude: 34.8433, Population: intPtr(110000), BasePricePerSqm: floatPtr(47000)},
	{Code: 6900, Name: "Kfar Saba", LocalName: "כפר סבא", District: DistrictCentral, Latitude: 32.1750, Longitude: 34.9070, Population: intPtr(105000), BasePricePerSqm: floatPtr(33000)},
	{Code: 6500, Name: "Hadera", LocalName: "חדרה", District: DistrictHaifa, Latitude: 32.4340, Longitude: 34.9196, Population: intPtr(100000), BasePricePerSqm: floatPtr(20000)},
	{Code: 1200, Name: "Modi'in-Maccabim-Re'ut", LocalName: "מודיעין-מכבים-רעות", Aliases: []string{"Modiin", "Modi'in", "מודיעין"}, District: DistrictCentral, Latitude: 31.8980, Longitude: 35.0104, Population: intPtr(95000), BasePricePerSqm: floatPtr(28000)},
	{Code: 8700, Name: "Ra'anana", LocalName: "רעננה", Aliases: []string{"Raanana"}, District: DistrictCentral, Latitude: 32.1848, Longitude: 34.8713, Population: intPtr(80000), BasePricePerSqm: floatPtr(38000)},
	{Code: 7300, Name: "Nazareth", LocalName: "נצרת", District: DistrictNorthern, Latitude: 32.6996, Longitude: 35.3035, Population: intPtr(78000), BasePricePerSqm: floatPtr(11000)},
	{Code: 2600, Name: "Eilat", LocalName: "אילת", District: DistrictSouthern, Latitude: 29.5577, Longitude: 34.9519, Population: intPtr(53000), BasePricePerSqm: floatPtr(17000)},
}

// CityDirectory is a read-only lookup over a city table
type CityDirectory struct {
	cities []City
	byCode map[int]int
	byName map[string]int
}

// NewCityDirectory builds a directory over the given table, keeping its order
func NewCityDirectory(cities []City) *CityDirectory {
	d := &CityDirectory{
		cities: make([]City, len(cities)),
		byCode: make(map[int]int, len(cities)),
		byName: make(map[string]int, len(cities)*3),
	}
	copy(d.cities, cities)

	for i, city := range d.cities {
		d.byCode[city.Code] = i
		for _, name := range append([]string{city.Name, city.LocalName}, city.Aliases...) {
			if key := NormalizeCity(name); key != "" {
				if _, exists := d.byName[key]; !exists {
					d.byName[key] = i
				}
			}
		}
	}
	return d
}

// DefaultCityDirectory returns a directory over SupportedCities
func DefaultCityDirectory() *CityDirectory {
	return NewCityDirectory(SupportedCities)
}

// Cities returns all cities in table order
func (d *CityDirectory) Cities() []City {
	cities := make([]City, len(d.cities))
	copy(cities, d.cities)
	return cities
}

// Len returns the number of cities in the directory
func (d *CityDirectory) Len() int {
	return len(d.cities)
}

// FindByNameOrCode returns the cities whose English or local name contains
// the query (case-insensitive), or whose code equals it exactly. An empty
// query matches every city.
func (d *CityDirectory) FindByNameOrCode(query string) []City {
	query = strings.TrimSpace(query)
	if query == "" {
		return d.Cities()
	}

	code, codeErr := strconv.Atoi(query)
	needle := strings.ToLower(query)

	var matches []City
	for _, city := range d.cities {
		if codeErr == nil && city.Code == code {
			matches = append(matches, city)
			continue
		}
		if strings.Contains(strings.ToLower(city.Name), needle) ||
			strings.Contains(strings.ToLower(city.LocalName), needle) {
			matches = append(matches, city)
		}
	}
	return matches
}

// Resolve maps a name, alias or numeric code to exactly one city
func (d *CityDirectory) Resolve(nameOrCode string) (City, bool) {
	nameOrCode = strings.TrimSpace(nameOrCode)
	if nameOrCode == "" {
		return City{}, false
	}
	if code, err := strconv.Atoi(nameOrCode); err == nil {
		return d.ByCode(code)
	}
	if i, ok := d.byName[NormalizeCity(nameOrCode)]; ok {
		return d.cities[i], true
	}
	return City{}, false
}

// ByCode returns the city with the given locality code
func (d *CityDirectory) ByCode(code int) (City, bool) {
	i, ok := d.byCode[code]
	if !ok {
		return City{}, false
	}
	return d.cities[i], true
}

// Districts returns the distinct districts in table order
func (d *CityDirectory) Districts() []string {
	seen := make(map[string]bool)
	var districts []string
	for _, city := range d.cities {
		if city.District != "" && !seen[city.District] {
			seen[city.District] = true
			districts = append(districts, city.District)
		}
	}
	return districts
}

// NormalizeCity turns a city name into a comparison key: lower case,
// quotes dropped, hyphens and repeated spaces collapsed to one space.
func NormalizeCity(name string) string {
	replacer := strings.NewReplacer("'", "", "\"", "", "׳", "", "״", "", "`", "", "-", " ")
	fields := strings.Fields(replacer.Replace(strings.ToLower(name)))
	return strings.Join(fields, " ")
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
