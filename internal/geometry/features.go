package geometry

import (
	"nadlan/server/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// featurePrecision gives ~150m cells, enough to group a street block on a map
const featurePrecision = 7

// TransactionsToFeatureCollection converts transactions with coordinates into
// a point FeatureCollection. Transactions without coordinates are skipped.
func TransactionsToFeatureCollection(transactions []models.Transaction) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var points orb.MultiPoint
	for _, tx := range transactions {
		point, ok := tx.Point()
		if !ok {
			continue
		}

		feature := geojson.NewFeature(point)
		feature.ID = tx.DealID
		feature.Properties = geojson.Properties{
			"deal_id":       tx.DealID,
			"deal_date":     tx.DealDate.Format("2006-01-02"),
			"deal_amount":   tx.DealAmount,
			"price_per_sqm": tx.PricePerSqm,
			"property_type": tx.PropertyType,
			"rooms":         tx.Rooms,
			"area":          tx.Area,
			"city":          tx.City,
			"street":        tx.Street,
			"verified":      tx.Verified,
			"source":        string(tx.Source),
			"geohash":       Cell(point, featurePrecision),
		}
		fc.Append(feature)
		points = append(points, point)
	}

	if len(points) > 0 {
		fc.BBox = geojson.NewBBox(points.Bound())
	}

	return fc
}
