// internal/feature/feature.go - Raw feature model consumed by the classifier
package feature

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// GeometryKind is the geometry class of a raw feature
type GeometryKind int

const (
	Point GeometryKind = iota
	Line
	Polygon
)

// String returns the lowercase name of the geometry kind
func (k GeometryKind) String() string {
	switch k {
	case Point:
		return "point"
	case Line:
		return "line"
	case Polygon:
		return "polygon"
	default:
		return fmt.Sprintf("GeometryKind(%d)", int(k))
	}
}

// Tag is a single key/value attribute. A feature may carry the same key more than once.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RawFeature is an ingested geographic feature. It is read-only to the classifier.
type RawFeature struct {
	Kind        GeometryKind `json:"kind"`
	Coordinates []orb.Point  `json:"coordinates"`
	Tags        []Tag        `json:"tags"`
}

// New creates a feature from a geometry kind, coordinates and alternating key/value strings
func New(kind GeometryKind, coords []orb.Point, kv ...string) RawFeature {
	tags := make([]Tag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags = append(tags, Tag{Key: kv[i], Value: kv[i+1]})
	}
	return RawFeature{Kind: kind, Coordinates: coords, Tags: tags}
}

// Any reports whether at least one tag satisfies pred
func (f *RawFeature) Any(pred func(Tag) bool) bool {
	for _, t := range f.Tags {
		if pred(t) {
			return true
		}
	}
	return false
}

// HasKey reports whether any tag uses key
func (f *RawFeature) HasKey(key string) bool {
	return f.Any(func(t Tag) bool { return t.Key == key })
}

// HasKeyPrefix reports whether any tag key starts with prefix
func (f *RawFeature) HasKeyPrefix(prefix string) bool {
	return f.Any(func(t Tag) bool { return strings.HasPrefix(t.Key, prefix) })
}

// HasTag reports whether a tag with key has a value matching pred
func (f *RawFeature) HasTag(key string, pred func(value string) bool) bool {
	return f.Any(func(t Tag) bool { return t.Key == key && pred(t.Value) })
}

// Value returns the first value stored under key
func (f *RawFeature) Value(key string) (string, bool) {
	for _, t := range f.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// IsPolygon reports whether the feature has polygon geometry
func (f *RawFeature) IsPolygon() bool {
	return f.Kind == Polygon
}
