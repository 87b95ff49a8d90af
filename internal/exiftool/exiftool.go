// internal/exiftool/exiftool.go
package exiftool

import (
	"context"
	"os/exec"
	"sync"

	"github.com/barasher/go-exiftool"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/pkg/common"
)

const defaultBinary = "exiftool"

// runner is the subset of *exiftool.Exiftool used by Extractor
type runner interface {
	ExtractMetadata(files ...string) []exiftool.FileMetadata
	Close() error
}

// Extractor reads metadata through a long-lived exiftool process.
// Requests are serialised since the process handles one file at a time.
type Extractor struct {
	mu sync.Mutex
	et runner
}

// Available reports whether an exiftool binary can be found
func Available(binary string) bool {
	if binary == "" {
		binary = defaultBinary
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// New starts exiftool. binary may be empty to use the one on PATH.
func New(binary string) (*Extractor, error) {
	var opts []func(*exiftool.Exiftool) error
	if binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binary))
	}

	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, common.NewToolError("exiftool", "start", "", err)
	}

	return &Extractor{et: et}, nil
}

// Extract returns every tag exiftool reports for the file at path
func (e *Extractor) Extract(ctx context.Context, path string) (metadata.Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	results := e.et.ExtractMetadata(path)
	e.mu.Unlock()

	if len(results) == 0 {
		return nil, common.NewToolError("exiftool", "read", "", common.ErrNoMetadata)
	}

	fm := results[0]
	if fm.Err != nil {
		return nil, common.NewToolError("exiftool", "read", "", fm.Err)
	}

	tags := make(metadata.Tags, len(fm.Fields))
	for k, v := range fm.Fields {
		tags[k] = v
	}
	return tags, nil
}

// Close stops the exiftool process
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.et.Close(); err != nil {
		return common.NewToolError("exiftool", "close", "", err)
	}
	return nil
}
