package application

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

// ToFeatureCollection projects a batch as one LineString feature per van. Vans
// without coordinates have no geometry to draw; their IDs are listed under
// "unrouted" on the collection.
func ToFeatureCollection(batch BatchResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	unrouted := []string{}

	for _, res := range batch.Results {
		var f *geojson.Feature
		switch len(res.Coordinates) {
		case 0:
			unrouted = append(unrouted, res.VanID)
			continue
		case 1:
			p := res.Coordinates[0]
			f = geojson.NewFeature(orb.Point{p.Lng, p.Lat})
		default:
			f = geojson.NewFeature(toLineString(res.Coordinates))
		}
		f.ID = res.VanID
		f.Properties["van_id"] = res.VanID
		f.Properties["status"] = res.Status.String()
		f.Properties["snapped"] = res.Status.IsSnapped()
		f.Properties["distance_km"] = res.DistanceKm
		f.Properties["duration_min"] = res.DurationMin
		if res.ErrorDetail != "" {
			f.Properties["error_detail"] = res.ErrorDetail
		}
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{
		"batch_id": batch.BatchID.String(),
		"source":   batch.Source,
		"ok":       batch.OK,
		"fallback": batch.Fallback,
		"error":    batch.Error,
		"unrouted": unrouted,
	}
	return fc
}

// toLineString converts waypoints to GeoJSON order (longitude first).
func toLineString(points []route.Waypoint) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lng, p.Lat}
	}
	return ls
}
