package dto

import "github.com/bstardust/photo-meta/internal/metadata"

// ImageURL points at the stored JPEG
type ImageURL struct {
	URL string `json:"url"`
}

// ExtractResponse is the body returned by POST /extract-metadata
type ExtractResponse struct {
	metadata.Record
	ImageURL   *ImageURL `json:"image_url,omitempty"`
	ImageError string    `json:"image_error,omitempty"`
}

// ErrorResponse is returned for every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
