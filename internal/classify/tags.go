// internal/classify/tags.go - Tag vocabularies used by the classification rules
package classify

import (
	"strings"

	"github.com/valpere/tile_to_png/internal/feature"
	"github.com/valpere/tile_to_png/internal/shape"
)

// Tag keys inspected by the rules
const (
	KeyHighway    = "highway"
	KeyWater      = "water"
	KeyRailway    = "railway"
	KeyNatural    = "natural"
	KeyBoundary   = "boundary"
	KeyLanduse    = "landuse"
	KeyBuilding   = "building"
	KeyLeisure    = "leisure"
	KeyAmenity    = "amenity"
	KeyPlace      = "place"
	KeyAdminLevel = "admin_level"
	KeyName       = "name"
)

// HighwayType is the set of highway values that produce a road
type HighwayType int

const (
	HighwayMotorway HighwayType = iota
	HighwayTrunk
	HighwayPrimary
	HighwaySecondary
	HighwayTertiary
	HighwayUnclassified
	HighwayResidential
	HighwayRoad
)

var highwayNames = map[string]HighwayType{
	"motorway":     HighwayMotorway,
	"trunk":        HighwayTrunk,
	"primary":      HighwayPrimary,
	"secondary":    HighwaySecondary,
	"tertiary":     HighwayTertiary,
	"unclassified": HighwayUnclassified,
	"residential":  HighwayResidential,
	"road":         HighwayRoad,
}

// ParseHighwayType parses a highway tag value, ignoring case
func ParseHighwayType(value string) (HighwayType, bool) {
	t, ok := highwayNames[normalize(value)]
	return t, ok
}

// LandType is the set of land use values recognized by the terrain rules
type LandType int

const (
	LandForest LandType = iota
	LandOrchard
	LandCemetery
	LandIndustrial
	LandCommercial
	LandSquare
	LandConstruction
	LandMilitary
	LandQuarry
	LandBrownfield
	LandFarm
	LandMeadow
	LandGrass
	LandGreenfield
	LandRecreationGround
	LandWinterSports
	LandAllotments
	LandReservoir
	LandBasin
)

var landNames = map[string]LandType{
	"forest":            LandForest,
	"orchard":           LandOrchard,
	"cemetery":          LandCemetery,
	"industrial":        LandIndustrial,
	"commercial":        LandCommercial,
	"square":            LandSquare,
	"construction":      LandConstruction,
	"military":          LandMilitary,
	"quarry":            LandQuarry,
	"brownfield":        LandBrownfield,
	"farm":              LandFarm,
	"meadow":            LandMeadow,
	"grass":             LandGrass,
	"greenfield":        LandGreenfield,
	"recreation_ground": LandRecreationGround,
	"winter_sports":     LandWinterSports,
	"allotments":        LandAllotments,
	"reservoir":         LandReservoir,
	"basin":             LandBasin,
}

// ParseLandType parses a land use value, ignoring case
func ParseLandType(value string) (LandType, bool) {
	t, ok := landNames[normalize(value)]
	return t, ok
}

// landIn returns a value predicate matching any of the given land types
func landIn(types ...LandType) func(string) bool {
	return func(value string) bool {
		t, ok := ParseLandType(value)
		if !ok {
			return false
		}
		for _, want := range types {
			if t == want {
				return true
			}
		}
		return false
	}
}

var naturalTypes = map[string]shape.GeoFeatureType{
	"fell":      shape.GeoPlain,
	"grassland": shape.GeoPlain,
	"heath":     shape.GeoPlain,
	"moor":      shape.GeoPlain,
	"scrub":     shape.GeoPlain,
	"wetland":   shape.GeoPlain,
	"wood":      shape.GeoForest,
	"tree_row":  shape.GeoForest,
	"water":     shape.GeoWater,
}

// NaturalType maps a natural tag value to a terrain subtype; unrecognized values are Unknown
func NaturalType(value string) shape.GeoFeatureType {
	if t, ok := naturalTypes[normalize(value)]; ok {
		return t
	}
	return shape.GeoUnknown
}

var placeTypes = map[string]bool{
	"city":     true,
	"town":     true,
	"locality": true,
	"hamlet":   true,
}

// IsBorder reports whether the feature is a national administrative boundary
func IsBorder(f *feature.RawFeature) bool {
	admin := f.HasTag(KeyBoundary, func(v string) bool { return normalize(v) == "administrative" })
	national := f.HasTag(KeyAdminLevel, func(v string) bool { return strings.TrimSpace(v) == "2" })
	return admin && national
}

// IsPopulatedPlace reports whether the feature is a settlement point
func IsPopulatedPlace(f *feature.RawFeature) bool {
	if f.Kind != feature.Point {
		return false
	}
	return f.HasTag(KeyPlace, func(v string) bool { return placeTypes[normalize(v)] })
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
