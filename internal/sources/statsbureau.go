package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nadlan/server/internal/models"

	json "github.com/goccy/go-json"
)

// StatisticsBureau queries the statistics bureau transaction feed
type StatisticsBureau struct {
	base
}

type bureauResponse struct {
	Transactions []bureauTransaction `json:"transactions"`
}

// bureauTransaction covers the camelCase feed fields we read. Localities
// are identified by code.
type bureauTransaction struct {
	TransactionID  string   `json:"transactionId"`
	Date           string   `json:"date"`
	Price          float64  `json:"price"`
	PricePerMeter  float64  `json:"pricePerMeter"`
	AssetType      string   `json:"assetType"`
	Rooms          float64  `json:"rooms"`
	Size           float64  `json:"size"`
	Floor          int      `json:"floor"`
	BuildingFloors int      `json:"buildingFloors"`
	YearBuilt      int      `json:"yearBuilt"`
	Condition      string   `json:"condition"`
	CityCode       int      `json:"cityCode"`
	CityName       string   `json:"cityName"`
	Street         string   `json:"street"`
	Block          string   `json:"block"`
	Parcel         string   `json:"parcel"`
	HasParking     bool     `json:"hasParking"`
	HasElevator    bool     `json:"hasElevator"`
	HasStorage     bool     `json:"hasStorage"`
	HasBalcony     bool     `json:"hasBalcony"`
	IsRenovated    bool     `json:"isRenovated"`
	IsVerified     bool     `json:"isVerified"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

// NewStatisticsBureau creates the statistics bureau adapter
func NewStatisticsBureau(opts Options) *StatisticsBureau {
	return &StatisticsBureau{base: newBase(models.SourceStatisticsBureau, opts)}
}

// Fetch requests the feed for the first criteria city. It never fails:
// errors are logged and yield an empty result.
func (s *StatisticsBureau) Fetch(ctx context.Context, criteria models.SearchCriteria) []models.Transaction {
	started := time.Now()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(s.pageSize))
	if name := firstCity(criteria); name != "" {
		if city, ok := s.cities.Resolve(name); ok {
			params.Set("cityCode", strconv.Itoa(city.Code))
		}
	}

	data, err := s.do(ctx, http.MethodGet, s.url+"?"+params.Encode(), nil)
	if err != nil {
		return s.fail(err, started)
	}

	var response bureauResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrMalformedPayload, err), started)
	}

	return s.succeed(normalizeAll(&s.base, response.Transactions, s.normalize), started)
}

func (s *StatisticsBureau) normalize(raw bureauTransaction) (models.Transaction, error) {
	tx := models.Transaction{
		DealID:       strings.TrimSpace(raw.TransactionID),
		DealAmount:   raw.Price,
		PricePerSqm:  raw.PricePerMeter,
		PropertyType: strings.TrimSpace(raw.AssetType),
		Rooms:        raw.Rooms,
		Area:         raw.Size,
		Floor:        raw.Floor,
		TotalFloors:  raw.BuildingFloors,
		BuildYear:    raw.YearBuilt,
		Condition:    raw.Condition,
		Street:       strings.TrimSpace(raw.Street),
		Block:        strings.TrimSpace(raw.Block),
		Parcel:       strings.TrimSpace(raw.Parcel),
		Parking:      raw.HasParking,
		Elevator:     raw.HasElevator,
		Warehouse:    raw.HasStorage,
		Balcony:      raw.HasBalcony,
		Renovated:    raw.IsRenovated,
		Verified:     raw.IsVerified,
		Source:       models.SourceStatisticsBureau,
		Latitude:     raw.Latitude,
		Longitude:    raw.Longitude,
	}

	date, err := parseDate(raw.Date)
	if err != nil {
		return tx, err
	}
	tx.DealDate = date

	if city, ok := s.cities.ByCode(raw.CityCode); ok {
		tx.City, tx.District = city.Name, city.District
	} else {
		tx.City, tx.District = s.resolveCity(raw.CityName)
	}

	return tx, nil
}
