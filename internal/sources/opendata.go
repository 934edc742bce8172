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
	"github.com/tidwall/gjson"
)

// OpenData queries a CKAN datastore resource on the government open-data
// portal
type OpenData struct {
	base
	resourceID string
}

// openDataRecord covers the datastore columns we read. Flags are stored as
// 0/1 integers.
type openDataRecord struct {
	RowID       int      `json:"_id"`
	DealID      string   `json:"deal_id"`
	DealDate    string   `json:"deal_date"`
	DealAmount  float64  `json:"deal_amount"`
	PricePerSqm float64  `json:"price_per_sqm"`
	AssetType   string   `json:"property_type"`
	Rooms       float64  `json:"rooms"`
	Area        float64  `json:"area"`
	Floor       int      `json:"floor"`
	TotalFloors int      `json:"total_floors"`
	BuildYear   int      `json:"build_year"`
	Condition   string   `json:"condition"`
	City        string   `json:"city"`
	District    string   `json:"district"`
	Street      string   `json:"street"`
	Block       string   `json:"block"`
	Parcel      string   `json:"parcel"`
	Parking     int      `json:"parking"`
	Elevator    int      `json:"elevator"`
	Warehouse   int      `json:"warehouse"`
	Balcony     int      `json:"balcony"`
	Renovated   int      `json:"renovated"`
	Verified    int      `json:"verified"`
	Source      string   `json:"source"`
	Latitude    *float64 `json:"lat"`
	Longitude   *float64 `json:"lon"`
}

// NewOpenData creates the open-data adapter for a datastore resource
func NewOpenData(opts Options, resourceID string) *OpenData {
	return &OpenData{
		base:       newBase(models.SourceCadastre, opts),
		resourceID: resourceID,
	}
}

// Fetch runs a datastore_search for the first criteria city. It never
// fails: errors are logged and yield an empty result.
func (o *OpenData) Fetch(ctx context.Context, criteria models.SearchCriteria) []models.Transaction {
	started := time.Now()

	params := url.Values{}
	params.Set("resource_id", o.resourceID)
	params.Set("limit", strconv.Itoa(o.pageSize))
	if name := firstCity(criteria); name != "" {
		if city, ok := o.cities.Resolve(name); ok {
			name = city.LocalName
		}
		params.Set("q", name)
	}

	data, err := o.do(ctx, http.MethodGet, o.url+"?"+params.Encode(), nil)
	if err != nil {
		return o.fail(err, started)
	}

	if !gjson.ValidBytes(data) {
		return o.fail(fmt.Errorf("%w: invalid JSON", ErrMalformedPayload), started)
	}
	if !gjson.GetBytes(data, "success").Bool() {
		message := gjson.GetBytes(data, "error.message").String()
		return o.fail(fmt.Errorf("%w: datastore reported failure %q", ErrMalformedPayload, message), started)
	}
	records := gjson.GetBytes(data, "result.records")
	if !records.IsArray() {
		return o.fail(fmt.Errorf("%w: missing result.records", ErrMalformedPayload), started)
	}

	return o.succeed(normalizeAll(&o.base, records.Array(), o.decode), started)
}

// decode unmarshals a single datastore row so one bad row does not
// poison the page
func (o *OpenData) decode(raw gjson.Result) (models.Transaction, error) {
	var record openDataRecord
	if err := json.Unmarshal([]byte(raw.Raw), &record); err != nil {
		return models.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return o.normalize(record)
}

func (o *OpenData) normalize(raw openDataRecord) (models.Transaction, error) {
	tx := models.Transaction{
		DealID:       strings.TrimSpace(raw.DealID),
		DealAmount:   raw.DealAmount,
		PricePerSqm:  raw.PricePerSqm,
		PropertyType: strings.TrimSpace(raw.AssetType),
		Rooms:        raw.Rooms,
		Area:         raw.Area,
		Floor:        raw.Floor,
		TotalFloors:  raw.TotalFloors,
		BuildYear:    raw.BuildYear,
		Condition:    raw.Condition,
		Street:       strings.TrimSpace(raw.Street),
		Block:        strings.TrimSpace(raw.Block),
		Parcel:       strings.TrimSpace(raw.Parcel),
		Parking:      raw.Parking != 0,
		Elevator:     raw.Elevator != 0,
		Warehouse:    raw.Warehouse != 0,
		Balcony:      raw.Balcony != 0,
		Renovated:    raw.Renovated != 0,
		Verified:     raw.Verified != 0,
		Source:       models.SourceCadastre,
		Latitude:     raw.Latitude,
		Longitude:    raw.Longitude,
	}
	if tx.DealID == "" && raw.RowID > 0 {
		tx.DealID = fmt.Sprintf("ckan-%d", raw.RowID)
	}
	if models.Source(strings.TrimSpace(raw.Source)) == models.SourceTaxAuthority {
		tx.Source = models.SourceTaxAuthority
	}

	date, err := parseDate(raw.DealDate)
	if err != nil {
		return tx, err
	}
	tx.DealDate = date

	tx.City, tx.District = o.resolveCity(raw.City)
	if tx.District == "" {
		tx.District = strings.TrimSpace(raw.District)
	}

	return tx, nil
}
