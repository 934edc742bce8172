package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nadlan/server/internal/models"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Registry queries the national transaction registry
type Registry struct {
	base
}

// registryRequest is the search body accepted by the registry
type registryRequest struct {
	ObjectID       string `json:"ObjectID,omitempty"`
	Query          string `json:"Query,omitempty"`
	PageNo         int    `json:"PageNo"`
	PageSize       int    `json:"PageSize"`
	OrderByFilled  string `json:"OrderByFilled"`
	OrderByDescend bool   `json:"OrderByDescend"`
}

type registryResponse struct {
	AllResults []registryDeal `json:"AllResults"`
}

// registryDeal covers the registry fields we read. Numbers arrive as
// display strings.
type registryDeal struct {
	KeyValue       string `json:"KEYVALUE"`
	DealDateTime   string `json:"DEALDATETIME"`
	DealAmount     string `json:"DEALAMOUNT"`
	DealNature     string `json:"DEALNATURE"`
	AssetType      string `json:"DEALNATUREDESCRIPTION"`
	Rooms          string `json:"ASSETROOMNUM"`
	Floor          string `json:"FLOORNO"`
	BuildingFloors string `json:"BUILDINGFLOORS"`
	BuildingYear   string `json:"BUILDINGYEAR"`
	Gush           string `json:"GUSH"`
	FullAddress    string `json:"FULLADRESS"`
	DisplayAddress string `json:"DISPLAYADRESS"`
	City           string `json:"CITY"`
}

// NewRegistry creates the registry adapter
func NewRegistry(opts Options) *Registry {
	return &Registry{base: newBase(models.SourceRegistry, opts)}
}

// Fetch posts a search for the first criteria city. It never fails: errors
// are logged and yield an empty result.
func (r *Registry) Fetch(ctx context.Context, criteria models.SearchCriteria) []models.Transaction {
	started := time.Now()

	request := registryRequest{
		PageNo:         1,
		PageSize:       r.pageSize,
		OrderByFilled:  "DEALDATETIME",
		OrderByDescend: true,
	}
	if name := firstCity(criteria); name != "" {
		request.Query = name
		if city, ok := r.cities.Resolve(name); ok {
			request.ObjectID = strconv.Itoa(city.Code)
			request.Query = city.LocalName
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return r.fail(fmt.Errorf("failed to encode request: %w", err), started)
	}

	data, err := r.do(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return r.fail(err, started)
	}

	var response registryResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return r.fail(fmt.Errorf("%w: %v", ErrMalformedPayload, err), started)
	}

	return r.succeed(normalizeAll(&r.base, response.AllResults, r.normalize), started)
}

// normalize maps one registry deal. Registry deals are official records
// and count as verified.
func (r *Registry) normalize(raw registryDeal) (models.Transaction, error) {
	tx := models.Transaction{
		DealID:       strings.TrimSpace(raw.KeyValue),
		PropertyType: strings.TrimSpace(raw.AssetType),
		Rooms:        optionalFloat(raw.Rooms),
		Area:         optionalFloat(raw.DealNature),
		Floor:        optionalInt(raw.Floor),
		TotalFloors:  optionalInt(raw.BuildingFloors),
		BuildYear:    optionalInt(raw.BuildingYear),
		Verified:     true,
		Source:       models.SourceRegistry,
	}

	date, err := parseDate(raw.DealDateTime)
	if err != nil {
		return tx, err
	}
	tx.DealDate = date

	amount, err := parseAmount(raw.DealAmount)
	if err != nil {
		return tx, err
	}
	tx.DealAmount = amount.InexactFloat64()
	if tx.Area > 0 {
		tx.PricePerSqm = amount.Div(decimal.NewFromFloat(tx.Area)).Round(0).InexactFloat64()
	}

	tx.Block, tx.Parcel = splitGush(raw.Gush)

	tx.Street = strings.TrimSpace(raw.DisplayAddress)
	if tx.Street == "" {
		tx.Street = strings.TrimSpace(raw.FullAddress)
	}
	tx.City, tx.District = r.resolveCity(raw.City)

	return tx, nil
}
