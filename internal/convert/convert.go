// Package convert turns uploaded photos into upright JPEGs for storage.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strconv"

	"github.com/aaronland/go-image-tools/imaging"
	"github.com/aaronland/go-image-tools/util"
	"github.com/bstardust/photo-meta/internal/exif"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/internal/worker"
	"github.com/bstardust/photo-meta/pkg/common"
)

// Converter produces JPEG bytes from the photo at src
type Converter interface {
	Convert(ctx context.Context, src string) ([]byte, error)
}

// Native converts in-process. It decodes whatever formats are registered
// with the image package.
type Native struct {
	Quality int
}

// NewNative creates an in-process converter
func NewNative(quality int) *Native {
	return &Native{Quality: quality}
}

func (n *Native) Convert(ctx context.Context, src string) ([]byte, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	im, format, err := util.DecodeImageFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewToolError("image", "decode", "", err)
	}

	orientation := exif.Orientation(bytes.NewReader(data))
	im = Orient(im, orientation)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, im, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, common.NewToolError("image", "encode", "", err)
	}

	logger.Debug("Converted %s image (orientation %d) to %d bytes of JPEG", format, orientation, buf.Len())
	return buf.Bytes(), nil
}

// Orient rotates im upright for the given EXIF orientation.
// Mirrored orientations (2, 4, 5, 7) are left untouched.
func Orient(im image.Image, orientation int) image.Image {
	// imaging.Rotate turns counter-clockwise
	switch orientation {
	case 3:
		return imaging.Rotate(im, 180, color.White)
	case 6:
		return imaging.Rotate(im, 270, color.White)
	case 8:
		return imaging.Rotate(im, 90, color.White)
	default:
		return im
	}
}

// Command converts by running an external tool (ImageMagick by default)
// that writes the JPEG to stdout.
type Command struct {
	Path    string
	Quality int
}

// NewCommand creates a converter that shells out to path
func NewCommand(path string, quality int) *Command {
	return &Command{Path: path, Quality: quality}
}

func (c *Command) Convert(ctx context.Context, src string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Path, src, "-auto-orient", "-quality", strconv.Itoa(c.Quality), "jpeg:-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewToolError(c.Path, "convert", stderr.String(), err)
	}

	if stdout.Len() == 0 {
		return nil, common.NewToolError(c.Path, "convert", stderr.String(), errors.New("no output"))
	}

	return stdout.Bytes(), nil
}

// Limited bounds how many conversions run at once
type Limited struct {
	next Converter
	pool *worker.Pool
}

// NewLimited wraps next so that at most max conversions run concurrently
func NewLimited(next Converter, max int) *Limited {
	return &Limited{next: next, pool: worker.NewPool(max)}
}

func (l *Limited) Convert(ctx context.Context, src string) ([]byte, error) {
	if err := l.pool.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for a conversion slot: %w", err)
	}
	defer l.pool.Release()

	return l.next.Convert(ctx, src)
}
