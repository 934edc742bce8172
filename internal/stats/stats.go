package stats

import (
	"sort"
	"strconv"

	"nadlan/server/internal/geometry"
	"nadlan/server/internal/models"
)

// DefaultPriceBuckets are the upper bounds of the deal amount histogram
var DefaultPriceBuckets = []float64{1000000, 2000000, 3000000, 5000000}

// Engine computes market statistics over transaction sets
type Engine struct {
	bounds []float64
}

// NewEngine creates a statistics engine with the given histogram bounds.
// Empty bounds fall back to DefaultPriceBuckets.
func NewEngine(bounds []float64) *Engine {
	if len(bounds) == 0 {
		bounds = DefaultPriceBuckets
	}
	sorted := make([]float64, len(bounds))
	copy(sorted, bounds)
	sort.Float64s(sorted)
	return &Engine{bounds: sorted}
}

type accumulator struct {
	count     int
	sumPrice  float64
	sumPerSqm float64
	sumArea   float64
}

func (a *accumulator) add(tx models.Transaction) {
	a.count++
	a.sumPrice += tx.DealAmount
	a.sumPerSqm += tx.PricePerSqm
	a.sumArea += tx.Area
}

func (a *accumulator) avg(sum float64) float64 {
	if a.count == 0 {
		return 0
	}
	return sum / float64(a.count)
}

// Compute returns the statistics of transactions. An empty input yields
// zero figures, empty maps and zero-count buckets.
func (e *Engine) Compute(transactions []models.Transaction) models.MarketStatistics {
	result := models.MarketStatistics{
		ByCity:         make(map[string]models.GroupStats),
		ByPropertyType: make(map[string]models.GroupStats),
		ByDistrict:     make(map[string]models.DistrictStats),
		ByGeohash:      make(map[string]models.DistrictStats),
		PriceRanges:    e.emptyBuckets(),
		MonthlyTrend:   []models.MonthlyPoint{},
	}
	if len(transactions) == 0 {
		return result
	}

	var total accumulator
	byCity := make(map[string]*accumulator)
	byType := make(map[string]*accumulator)
	byDistrict := make(map[string]*accumulator)
	byCell := make(map[string]*accumulator)
	byMonth := make(map[string]*accumulator)
	perSqm := make([]float64, 0, len(transactions))

	for _, tx := range transactions {
		total.add(tx)
		perSqm = append(perSqm, tx.PricePerSqm)
		if tx.Verified {
			result.VerifiedCount++
		}

		group(byCity, tx.City).add(tx)
		group(byType, tx.PropertyType).add(tx)
		if tx.District != "" {
			group(byDistrict, tx.District).add(tx)
		}
		if point, ok := tx.Point(); ok {
			group(byCell, geometry.Cell(point, geometry.CellPrecision)).add(tx)
		}
		group(byMonth, tx.DealDate.UTC().Format("2006-01")).add(tx)

		result.PriceRanges[e.bucketIndex(tx.DealAmount)].Count++
	}

	sort.Float64s(perSqm)

	result.TotalTransactions = total.count
	result.AvgPrice = total.avg(total.sumPrice)
	result.AvgArea = total.avg(total.sumArea)
	result.AvgPricePerSqm = total.avg(total.sumPerSqm)
	result.MedianPricePerSqm = median(perSqm)
	result.MinPricePerSqm = perSqm[0]
	result.MaxPricePerSqm = perSqm[len(perSqm)-1]

	for key, acc := range byCity {
		result.ByCity[key] = groupStats(acc)
	}
	for key, acc := range byType {
		result.ByPropertyType[key] = groupStats(acc)
	}
	for key, acc := range byDistrict {
		result.ByDistrict[key] = districtStats(acc)
	}
	for key, acc := range byCell {
		result.ByGeohash[key] = districtStats(acc)
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		acc := byMonth[month]
		result.MonthlyTrend = append(result.MonthlyTrend, models.MonthlyPoint{
			Month:          month,
			Count:          acc.count,
			AvgPricePerSqm: acc.avg(acc.sumPerSqm),
		})
	}

	return result
}

func group(groups map[string]*accumulator, key string) *accumulator {
	acc, ok := groups[key]
	if !ok {
		acc = &accumulator{}
		groups[key] = acc
	}
	return acc
}

func groupStats(acc *accumulator) models.GroupStats {
	return models.GroupStats{
		Count:          acc.count,
		AvgPricePerSqm: acc.avg(acc.sumPerSqm),
		AvgArea:        acc.avg(acc.sumArea),
	}
}

func districtStats(acc *accumulator) models.DistrictStats {
	return models.DistrictStats{
		Count:          acc.count,
		AvgPricePerSqm: acc.avg(acc.sumPerSqm),
	}
}

// median expects sorted input
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func (e *Engine) bucketIndex(amount float64) int {
	for i, bound := range e.bounds {
		if amount < bound {
			return i
		}
	}
	return len(e.bounds)
}

func (e *Engine) emptyBuckets() []models.PriceBucket {
	buckets := make([]models.PriceBucket, 0, len(e.bounds)+1)
	lower := 0.0
	for i, bound := range e.bounds {
		upper := bound
		label := formatAmount(lower) + "-" + formatAmount(upper)
		if i == 0 {
			label = "<" + formatAmount(upper)
		}
		buckets = append(buckets, models.PriceBucket{Label: label, Min: lower, Max: &upper})
		lower = bound
	}
	buckets = append(buckets, models.PriceBucket{Label: formatAmount(lower) + "+", Min: lower})
	return buckets
}

// formatAmount renders 1500000 as "1.5M" and 750000 as "750K"
func formatAmount(v float64) string {
	switch {
	case v >= 1000000:
		return strconv.FormatFloat(v/1000000, 'f', -1, 64) + "M"
	case v >= 1000:
		return strconv.FormatFloat(v/1000, 'f', -1, 64) + "K"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
