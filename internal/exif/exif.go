// internal/exif/exif.go
package exif

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/pkg/common"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

var registerOnce sync.Once

// Extractor reads EXIF metadata in-process with goexif. It only understands
// JPEG and TIFF containers; anything else yields an empty tag set.
type Extractor struct{}

// NewExtractor creates a new goexif-backed extractor
func NewExtractor() *Extractor {
	registerOnce.Do(func() {
		exif.RegisterParsers(mknote.All...)
	})
	return &Extractor{}
}

// Extract extracts EXIF metadata from the file at path
func (e *Extractor) Extract(ctx context.Context, path string) (metadata.Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewToolError("goexif", "open", "", err)
	}
	defer f.Close()

	tags, err := Decode(f)
	if err != nil {
		logger.Debug("No EXIF data in %s: %v", path, err)
		return metadata.Tags{}, nil
	}
	return tags, nil
}

// Close is a no-op; goexif holds no resources
func (e *Extractor) Close() error {
	return nil
}

// Decode parses EXIF from r into a tag set
func Decode(r io.Reader) (metadata.Tags, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("failed to decode EXIF data: %w", err)
	}

	tags := metadata.Tags{}

	stringTag(x, exif.DateTimeOriginal, tags, metadata.TagDateTimeOriginal)
	stringTag(x, exif.DateTimeDigitized, tags, metadata.TagCreateDate)
	stringTag(x, exif.Make, tags, metadata.TagMake)
	stringTag(x, exif.Model, tags, metadata.TagModel)

	// LatLong applies the hemisphere refs already
	if lat, long, err := x.LatLong(); err == nil {
		tags[metadata.TagGPSLatitude] = lat
		tags[metadata.TagGPSLongitude] = long

		if alt, err := x.Get(exif.GPSAltitude); err == nil {
			if rational, err := alt.Rat(0); err == nil {
				f, _ := rational.Float64()
				tags[metadata.TagGPSAltitude] = f
			}
		}
	}

	if o, err := x.Get(exif.Orientation); err == nil {
		if v, err := o.Int(0); err == nil {
			tags[metadata.TagOrientation] = float64(v)
		}
	}

	return tags, nil
}

// Orientation returns the EXIF orientation (1-8) of r, or 1 if unknown
func Orientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func stringTag(x *exif.Exif, name exif.FieldName, tags metadata.Tags, key string) {
	tag, err := x.Get(name)
	if err != nil {
		return
	}
	if s, err := tag.StringVal(); err == nil && s != "" {
		tags[key] = s
	}
}
