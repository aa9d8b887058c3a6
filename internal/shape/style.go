// internal/shape/style.go - Paint order and draw style tables
package shape

import (
	"image/color"

	"golang.org/x/image/colornames"
)

// Style holds the drawing parameters the renderer passes to a surface
type Style struct {
	Stroke color.Color
	Fill   color.Color
	Width  float64
	Dash   []float64
	Filled bool
}

// Terrain sits at the bottom, then borders and water, then transport, then places.
var kindZIndex = map[Kind]int{
	KindBorder:         30,
	KindWaterway:       40,
	KindRailway:        45,
	KindRoad:           50,
	KindPopulatedPlace: 60,
}

var geoZIndex = map[GeoFeatureType]int{
	GeoUnknown:     8,
	GeoPlain:       10,
	GeoForest:      11,
	GeoWater:       40,
	GeoResidential: 41,
}

var geoColors = map[GeoFeatureType]color.RGBA{
	GeoUnknown:     colornames.Magenta,
	GeoPlain:       colornames.Lightgreen,
	GeoForest:      colornames.Forestgreen,
	GeoWater:       colornames.Lightblue,
	GeoResidential: colornames.Lightcoral,
}

func styleFor(s *Shape) Style {
	switch s.Kind {
	case KindRoad:
		return Style{Stroke: colornames.Coral, Width: 2}
	case KindWaterway:
		if s.Area {
			return Style{Stroke: colornames.Lightblue, Fill: colornames.Lightblue, Width: 1, Filled: true}
		}
		return Style{Stroke: colornames.Lightblue, Width: 1.2}
	case KindBorder:
		return Style{Stroke: colornames.Gray, Width: 2}
	case KindPopulatedPlace:
		return Style{Stroke: colornames.Black, Fill: colornames.Black, Width: 1}
	case KindRailway:
		return Style{Stroke: colornames.Darkgray, Width: 2, Dash: []float64{6, 3}}
	case KindGeoFeature:
		c := geoColors[s.GeoType]
		if s.Area {
			return Style{Stroke: c, Fill: c, Width: 1, Filled: true}
		}
		return Style{Stroke: c, Width: 1.2}
	}
	return Style{Stroke: colornames.Black, Width: 1}
}
