package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bstardust/photo-meta/internal/gps"
)

// Tag names shared by all extractors
const (
	TagGPSLatitude      = "GPSLatitude"
	TagGPSLongitude     = "GPSLongitude"
	TagGPSLatitudeRef   = "GPSLatitudeRef"
	TagGPSLongitudeRef  = "GPSLongitudeRef"
	TagGPSAltitude      = "GPSAltitude"
	TagDateTimeOriginal = "DateTimeOriginal"
	TagCreateDate       = "CreateDate"
	TagMake             = "Make"
	TagModel            = "Model"
	TagOrientation      = "Orientation"
)

// Extractor reads the embedded metadata of a file on disk
type Extractor interface {
	Extract(ctx context.Context, path string) (Tags, error)
	Close() error
}

// Tags maps tag names to raw values as reported by an extractor.
// Values are strings, float64s or whatever else the extractor decoded.
type Tags map[string]any

// String returns the tag as trimmed text, or "" when it is absent or empty
func (t Tags) String(key string) string {
	v, ok := t[key]
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// FirstString returns the first non-empty tag among keys, in order
func FirstString(t Tags, keys ...string) *string {
	for _, k := range keys {
		if s := t.String(k); s != "" {
			return &s
		}
	}
	return nil
}

// ResolveCoordinate turns a raw GPS tag value into decimal degrees.
// Numeric values (or numeric strings) are taken as already decimal and never
// go through the DMS parser. DMS strings are parsed; if that fails and a
// separate hemisphere reference is known, the reference is appended and the
// parse retried. Anything else resolves to nil.
func ResolveCoordinate(value any, ref string) *float64 {
	var f float64

	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}

		if n, err := strconv.ParseFloat(s, 64); err == nil {
			f = n
			break
		}

		n, ok := gps.Parse(s)
		if !ok {
			if r := hemisphereLetter(ref); r != "" {
				n, ok = gps.Parse(s + " " + r)
			}
		}
		if !ok {
			return nil
		}
		f = n
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// hemisphereLetter reduces "North", "s", " W " and friends to a single
// upper-case letter, or "" if ref is not a hemisphere.
func hemisphereLetter(ref string) string {
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "N", "NORTH":
		return "N"
	case "S", "SOUTH":
		return "S"
	case "E", "EAST":
		return "E"
	case "W", "WEST":
		return "W"
	default:
		return ""
	}
}

// Record is the metadata summary returned for an uploaded photo
type Record struct {
	HasLocationData bool     `json:"hasLocationData"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	DateTime        *string  `json:"dateTime"`
	Make            *string  `json:"make"`
	Model           *string  `json:"model"`
}

// BuildRecord summarises extracted tags
func BuildRecord(t Tags) Record {
	lat := ResolveCoordinate(t[TagGPSLatitude], t.String(TagGPSLatitudeRef))
	lon := ResolveCoordinate(t[TagGPSLongitude], t.String(TagGPSLongitudeRef))

	return Record{
		HasLocationData: lat != nil && lon != nil && *lat != 0 && *lon != 0,
		Latitude:        lat,
		Longitude:       lon,
		DateTime:        FirstString(t, TagDateTimeOriginal, TagCreateDate),
		Make:            FirstString(t, TagMake),
		Model:           FirstString(t, TagModel),
	}
}

// ToMap converts the record to a map for object storage user metadata
func (r Record) ToMap() map[string]string {
	result := make(map[string]string)

	if r.Latitude != nil {
		result["geo-latitude"] = fmt.Sprintf("%f", *r.Latitude)
	}
	if r.Longitude != nil {
		result["geo-longitude"] = fmt.Sprintf("%f", *r.Longitude)
	}
	if r.DateTime != nil {
		result["date-time"] = *r.DateTime
	}
	if r.Make != nil {
		result["camera-make"] = *r.Make
	}
	if r.Model != nil {
		result["camera-model"] = *r.Model
	}

	return result
}
