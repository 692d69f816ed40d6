package backend

import (
	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// Wire shapes for the backend REST API. Nullable metadata fields use
// pointers so absent and empty are distinguishable while decoding;
// the domain model flattens them back to plain values.

type imageDTO struct {
	ID              string  `json:"id"`
	DatasetSource   *string `json:"dataset_source"`
	ImagePath       string  `json:"image_path"`
	Diagnosis       *string `json:"diagnosis"`
	TissueType      *string `json:"tissue_type"`
	BenignMalignant *string `json:"benign_malignant"`
	Age             *int    `json:"age"`
	Sex             *string `json:"sex"`
}

type searchResultDTO struct {
	Image           imageDTO `json:"image"`
	SimilarityScore float64  `json:"similarity_score"`
	ImageURL        string   `json:"image_url"`
}

type searchResponseDTO struct {
	QueryProcessingTimeMs float64           `json:"query_processing_time_ms"`
	SearchTimeMs          float64           `json:"search_time_ms"`
	TotalTimeMs           float64           `json:"total_time_ms"`
	Results               []searchResultDTO `json:"results"`
	ResultCount           int               `json:"result_count"`
}

type imageDetailDTO struct {
	Image    imageDTO `json:"image"`
	ImageURL string   `json:"image_url"`
}

type filtersDTO struct {
	Diagnoses       []string `json:"diagnoses"`
	TissueTypes     []string `json:"tissue_types"`
	BenignMalignant []string `json:"benign_malignant"`
}

type healthDTO struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Version  string            `json:"version"`
}

type textSearchRequest struct {
	Query           string  `json:"query"`
	TopK            int     `json:"top_k,omitempty"`
	Diagnosis       *string `json:"diagnosis,omitempty"`
	TissueType      *string `json:"tissue_type,omitempty"`
	BenignMalignant *string `json:"benign_malignant,omitempty"`
}

type feedbackRequest struct {
	QueryImageID  *string `json:"query_image_id,omitempty"`
	ResultImageID string  `json:"result_image_id"`
	Vote          int     `json:"vote"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type batchJobDTO struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	TotalImages     int     `json:"total_images"`
	ProcessedImages int     `json:"processed_images"`
	Error           string  `json:"error"`
	ElapsedMs       float64 `json:"elapsed_ms"`
}

// --- Converters ---

func (d searchResultDTO) toDomain() domain.ResultItem {
	return domain.ResultItem{
		ImageID:         d.Image.ID,
		SimilarityScore: d.SimilarityScore,
		ImageURL:        d.ImageURL,
		Diagnosis:       deref(d.Image.Diagnosis),
		TissueType:      deref(d.Image.TissueType),
		BenignMalignant: deref(d.Image.BenignMalignant),
		Age:             d.Image.Age,
		Sex:             deref(d.Image.Sex),
		DatasetSource:   deref(d.Image.DatasetSource),
	}
}

func (d searchResponseDTO) toDomain() *domain.SearchResponse {
	results := make([]domain.ResultItem, len(d.Results))
	for i, r := range d.Results {
		results[i] = r.toDomain()
	}
	return &domain.SearchResponse{
		Results:               results,
		ResultCount:           d.ResultCount,
		QueryProcessingTimeMs: d.QueryProcessingTimeMs,
		SearchTimeMs:          d.SearchTimeMs,
		TotalTimeMs:           d.TotalTimeMs,
	}
}

func (d imageDetailDTO) toDomain() domain.ResultItem {
	item := searchResultDTO{Image: d.Image, ImageURL: d.ImageURL}.toDomain()
	return item
}

func (d healthDTO) toDomain() domain.HealthStatus {
	status := domain.HealthStatus{
		Services: d.Services,
		Version:  d.Version,
	}
	switch d.Status {
	case "healthy":
		status.State = domain.HealthHealthy
	case "degraded", "unhealthy":
		status.State = domain.HealthDegraded
	default:
		status.State = domain.HealthUnknown
	}
	return status
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
