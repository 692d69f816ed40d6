package domain

// ResultItem is a single search hit. Immutable once received;
// rank is its position in the enclosing result sequence.
type ResultItem struct {
	// ImageID is the reference image identifier (UUID).
	ImageID string

	// SimilarityScore is the backend similarity in [0,1].
	SimilarityScore float64

	// ImageURL is a presigned URL for the image bytes.
	ImageURL string

	// Diagnosis is the diagnosis label, if recorded.
	Diagnosis string

	// TissueType is the tissue type, if recorded.
	TissueType string

	// BenignMalignant is the classification, if recorded.
	BenignMalignant string

	// Age is the patient age, if recorded.
	Age *int

	// Sex is the patient sex, if recorded.
	Sex string

	// DatasetSource names the originating dataset (e.g. "isic").
	DatasetSource string
}

// SearchResponse is an ordered result set with timing metadata.
type SearchResponse struct {
	// Results are the hits in backend rank order.
	Results []ResultItem

	// ResultCount equals len(Results).
	ResultCount int

	// QueryProcessingTimeMs is the embedding generation time.
	QueryProcessingTimeMs float64

	// SearchTimeMs is the vector index search time.
	SearchTimeMs float64

	// TotalTimeMs is the end-to-end backend time.
	TotalTimeMs float64
}
