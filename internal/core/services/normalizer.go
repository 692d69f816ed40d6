package services

import (
	"strings"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// Query normalisation: validates raw input and produces a canonical
// QueryRequest. Pure functions, no side effects, no network access.

// NormalizeImage validates an image query and merges the active filters.
// Returns a *domain.ValidationError for unacceptable media types or an
// empty blob; nothing is sent over the network on failure.
func NormalizeImage(blob []byte, mimeType string, filters domain.FilterSet, limit int) (domain.QueryRequest, error) {
	if len(blob) == 0 {
		return domain.QueryRequest{}, domain.NewValidationError("image", "image data is empty")
	}
	if !domain.AllowedImageMIME(mimeType) {
		return domain.QueryRequest{}, domain.NewValidationError(
			"mime_type", "unsupported file type, use JPEG, PNG, or TIFF")
	}

	return domain.QueryRequest{
		Modality: domain.ModalityImage,
		Image:    &domain.ImageQuery{Blob: blob, MIMEType: mimeType},
		Filters:  NormalizeFilters(filters),
		Limit:    limit,
	}, nil
}

// NormalizeText validates a text query and merges the active filters.
// The text is trimmed; a query that is empty after trimming returns a
// *domain.ValidationError.
func NormalizeText(text string, filters domain.FilterSet, limit int) (domain.QueryRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.QueryRequest{}, domain.NewValidationError("text", "query text is empty")
	}

	return domain.QueryRequest{
		Modality: domain.ModalityText,
		Text:     &domain.TextQuery{Query: text},
		Filters:  NormalizeFilters(filters),
		Limit:    limit,
	}, nil
}

// NormalizeFilters trims each dimension and drops whitespace-only
// values, so the transport layer never sends empty filter parameters.
func NormalizeFilters(filters domain.FilterSet) domain.FilterSet {
	return domain.FilterSet{
		Diagnosis:       strings.TrimSpace(filters.Diagnosis),
		TissueType:      strings.TrimSpace(filters.TissueType),
		BenignMalignant: strings.TrimSpace(filters.BenignMalignant),
	}
}
