package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bstardust/photo-meta/internal/api/dto"
	"github.com/bstardust/photo-meta/internal/convert"
	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/internal/metadata"
	"github.com/bstardust/photo-meta/internal/obs"
	"github.com/gin-gonic/gin"
)

// PhotoField is the multipart form field carrying the upload
const PhotoField = "photo"

const (
	msgExtractFailed = "Failed to extract metadata"
	msgNoPhoto       = "No photo uploaded"
	msgTooLarge      = "Photo exceeds the upload size limit"
)

// Persister stores a converted JPEG and returns its URL
type Persister interface {
	Persist(ctx context.Context, data []byte, rec metadata.Record) (string, error)
}

// ExtractHandler serves POST /extract-metadata.
// Converter and Persister are optional. The photo is converted and stored
// only when both are set; otherwise only metadata is returned.
type ExtractHandler struct {
	Extractor      metadata.Extractor
	Converter      convert.Converter
	Persister      Persister
	TempDir        string
	MaxUploadBytes int64
}

func (h *ExtractHandler) Extract(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithRequest(obs.RequestID(ctx))

	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	fh, err := c.FormFile(PhotoField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusBadRequest, msgTooLarge)
			return
		}
		log.WithError(err).Debug("no photo in request")
		writeError(c, http.StatusBadRequest, msgNoPhoto)
		return
	}

	path, err := h.saveTemp(fh)
	if err != nil {
		log.WithError(err).Error("failed to stage upload")
		writeError(c, http.StatusInternalServerError, msgExtractFailed)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Debug("failed to remove temp file")
		}
	}()

	tags, err := h.extract(ctx, path)
	if err != nil {
		log.WithError(err).WithField("file", fh.Filename).Error("metadata extraction failed")
		writeError(c, http.StatusInternalServerError, msgExtractFailed)
		return
	}

	resp := dto.ExtractResponse{Record: metadata.BuildRecord(tags)}

	if h.Converter != nil && h.Persister != nil {
		url, err := h.store(ctx, path, resp.Record)
		if err != nil {
			log.WithError(err).Warn("photo not stored")
			resp.ImageError = err.Error()
		} else {
			resp.ImageURL = &dto.ImageURL{URL: url}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ExtractHandler) extract(ctx context.Context, path string) (tags metadata.Tags, err error) {
	defer obs.Time(ctx, "extract")(&err)
	return h.Extractor.Extract(ctx, path)
}

// store converts the upload and persists the JPEG
func (h *ExtractHandler) store(ctx context.Context, path string, rec metadata.Record) (url string, err error) {
	defer obs.Time(ctx, "store")(&err)

	data, err := h.Converter.Convert(ctx, path)
	if err != nil {
		return "", fmt.Errorf("conversion failed: %w", err)
	}

	url, err = h.Persister.Persist(ctx, data, rec)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return url, nil
}

// saveTemp copies the upload to a uniquely named file, keeping its extension
// so extension-sniffing tools still recognise it.
func (h *ExtractHandler) saveTemp(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\*`) {
		ext = ""
	}

	dst, err := os.CreateTemp(h.TempDir, "photo-meta-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return dst.Name(), nil
}
