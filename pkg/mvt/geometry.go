// pkg/mvt/geometry.go - Shared geometry transformation utilities
package mvt

import (
	"math"

	"github.com/paulmach/orb"
)

// Web Mercator bounds
const webMercatorMax = 20037508.342789244

// applyGeometryTransform applies a transformation function to all coordinates in a geometry
func applyGeometryTransform(geom orb.Geometry, transform func(orb.Point) orb.Point) orb.Geometry {
	switch g := geom.(type) {
	case orb.Point:
		return transform(g)
	case orb.MultiPoint:
		result := make(orb.MultiPoint, len(g))
		for i, point := range g {
			result[i] = transform(point)
		}
		return result
	case orb.LineString:
		result := make(orb.LineString, len(g))
		for i, point := range g {
			result[i] = transform(point)
		}
		return result
	case orb.MultiLineString:
		result := make(orb.MultiLineString, len(g))
		for i, lineString := range g {
			result[i] = applyGeometryTransform(lineString, transform).(orb.LineString)
		}
		return result
	case orb.Ring:
		result := make(orb.Ring, len(g))
		for i, point := range g {
			result[i] = transform(point)
		}
		return result
	case orb.Polygon:
		result := make(orb.Polygon, len(g))
		for i, ring := range g {
			result[i] = applyGeometryTransform(ring, transform).(orb.Ring)
		}
		return result
	case orb.MultiPolygon:
		result := make(orb.MultiPolygon, len(g))
		for i, polygon := range g {
			result[i] = applyGeometryTransform(polygon, transform).(orb.Polygon)
		}
		return result
	case orb.Collection:
		result := make(orb.Collection, len(g))
		for i, member := range g {
			result[i] = applyGeometryTransform(member, transform)
		}
		return result
	default:
		return geom
	}
}

// tileToMercator maps tile pixel coordinates (origin top-left, y down) to Web Mercator meters
func tileToMercator(z, x, y int, extent float64) func(orb.Point) orb.Point {
	n := float64(uint64(1) << uint(z))
	return func(point orb.Point) orb.Point {
		globalX := (float64(x) + point[0]/extent) / n
		globalY := (float64(y) + point[1]/extent) / n
		return orb.Point{
			(globalX*2.0 - 1.0) * webMercatorMax,
			(1.0 - globalY*2.0) * webMercatorMax,
		}
	}
}

// mercatorToWGS84 converts Web Mercator meters to longitude/latitude
func mercatorToWGS84(point orb.Point) orb.Point {
	lon := (point[0] / webMercatorMax) * 180.0
	lat := point[1] / webMercatorMax
	lat = 180.0 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi)) - math.Pi/2.0)
	return orb.Point{lon, lat}
}

// wgs84ToMercator converts longitude/latitude to Web Mercator meters
func wgs84ToMercator(point orb.Point) orb.Point {
	lat := math.Max(-85.05112878, math.Min(85.05112878, point[1]))
	x := point[0] / 180.0 * webMercatorMax
	y := math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / math.Pi * webMercatorMax
	return orb.Point{x, y}
}

func chain(first, second func(orb.Point) orb.Point) func(orb.Point) orb.Point {
	return func(p orb.Point) orb.Point {
		return second(first(p))
	}
}
