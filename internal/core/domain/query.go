package domain

// Modality identifies how a search request originated.
type Modality int

const (
	// ModalityImage is a search seeded by an uploaded image.
	ModalityImage Modality = iota

	// ModalityText is a search seeded by a free-text description.
	ModalityText
)

// String returns the string representation of the modality.
func (m Modality) String() string {
	switch m {
	case ModalityImage:
		return "image"
	case ModalityText:
		return "text"
	default:
		return "unknown"
	}
}

// MIME types the backend accepts for image queries.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMETIFF = "image/tiff"
)

// AllowedImageMIME reports whether the given media type is accepted
// for image queries.
func AllowedImageMIME(mimeType string) bool {
	switch mimeType {
	case MIMEJPEG, MIMEPNG, MIMETIFF:
		return true
	default:
		return false
	}
}

// Filter dimension names as they appear on the wire.
const (
	FilterDiagnosis       = "diagnosis"
	FilterTissueType      = "tissue_type"
	FilterBenignMalignant = "benign_malignant"
)

// FilterSet holds the optional metadata constraints for a query.
// An empty value imposes no constraint on that dimension.
type FilterSet struct {
	// Diagnosis restricts results to a diagnosis label.
	Diagnosis string

	// TissueType restricts results to a tissue type.
	TissueType string

	// BenignMalignant restricts results to a classification.
	BenignMalignant string
}

// IsZero reports whether no dimension is constrained.
func (f FilterSet) IsZero() bool {
	return f.Diagnosis == "" && f.TissueType == "" && f.BenignMalignant == ""
}

// Params returns the active dimensions keyed by their wire names.
// Empty values are omitted so the transport never sends empty-string
// filter parameters.
func (f FilterSet) Params() map[string]string {
	params := make(map[string]string, 3)
	if f.Diagnosis != "" {
		params[FilterDiagnosis] = f.Diagnosis
	}
	if f.TissueType != "" {
		params[FilterTissueType] = f.TissueType
	}
	if f.BenignMalignant != "" {
		params[FilterBenignMalignant] = f.BenignMalignant
	}
	return params
}

// FilterOptions is the filter vocabulary fetched from the backend.
// Read-only for the session; refreshable only by a fresh fetch.
type FilterOptions struct {
	// Diagnoses are the known diagnosis labels.
	Diagnoses []string

	// TissueTypes are the known tissue types.
	TissueTypes []string

	// BenignMalignant are the known classification labels.
	BenignMalignant []string
}

// ImageQuery is the payload of an image-originated search.
type ImageQuery struct {
	// Blob is the raw image bytes.
	Blob []byte

	// MIMEType is the media type of Blob.
	MIMEType string
}

// TextQuery is the payload of a text-originated search.
type TextQuery struct {
	// Query is the free-text description.
	Query string
}

// QueryRequest is a validated, canonical search request.
// Exactly one of Image or Text is non-nil, matching Modality.
type QueryRequest struct {
	// Modality identifies which payload variant is present.
	Modality Modality

	// Image is the image payload for ModalityImage requests.
	Image *ImageQuery

	// Text is the text payload for ModalityText requests.
	Text *TextQuery

	// Filters are the active metadata constraints.
	Filters FilterSet

	// Limit is the maximum number of results (backend default when 0).
	Limit int
}
