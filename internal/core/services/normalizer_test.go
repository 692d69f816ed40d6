package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

// TestNormalizeImage_Valid tests a well-formed image query.
func TestNormalizeImage_Valid(t *testing.T) {
	req, err := NormalizeImage([]byte{0xFF, 0xD8}, "image/jpeg", domain.FilterSet{}, 10)
	require.NoError(t, err)

	assert.Equal(t, domain.ModalityImage, req.Modality)
	require.NotNil(t, req.Image)
	assert.Equal(t, "image/jpeg", req.Image.MIMEType)
	assert.Nil(t, req.Text)
	assert.Equal(t, 10, req.Limit)
}

// TestNormalizeImage_RejectsMIMEType tests the validation boundary:
// an unacceptable media type fails before any network involvement.
func TestNormalizeImage_RejectsMIMEType(t *testing.T) {
	_, err := NormalizeImage([]byte{0x01}, "application/pdf", domain.FilterSet{}, 10)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "mime_type", verr.Field)
}

// TestNormalizeImage_RejectsEmptyBlob tests empty image data.
func TestNormalizeImage_RejectsEmptyBlob(t *testing.T) {
	_, err := NormalizeImage(nil, "image/png", domain.FilterSet{}, 10)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

// TestNormalizeText_Trims tests text canonicalisation.
func TestNormalizeText_Trims(t *testing.T) {
	req, err := NormalizeText("  melanocytic lesion  ", domain.FilterSet{}, 5)
	require.NoError(t, err)

	assert.Equal(t, domain.ModalityText, req.Modality)
	require.NotNil(t, req.Text)
	assert.Equal(t, "melanocytic lesion", req.Text.Query)
	assert.Nil(t, req.Image)
}

// TestNormalizeText_RejectsEmpty tests that whitespace-only text fails.
func TestNormalizeText_RejectsEmpty(t *testing.T) {
	_, err := NormalizeText("   ", domain.FilterSet{}, 5)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "text", verr.Field)
}

// TestNormalizeFilters_StripsEmptyValues tests the filter strip
// property: empty dimensions vanish, populated ones survive.
func TestNormalizeFilters_StripsEmptyValues(t *testing.T) {
	req, err := NormalizeText("query", domain.FilterSet{
		Diagnosis:  "",
		TissueType: "melanoma",
	}, 5)
	require.NoError(t, err)

	params := req.Filters.Params()
	assert.Len(t, params, 1)
	assert.Equal(t, "melanoma", params[domain.FilterTissueType])
}

// TestNormalizeFilters_TrimsWhitespace tests that whitespace-only
// values are treated as absent.
func TestNormalizeFilters_TrimsWhitespace(t *testing.T) {
	f := NormalizeFilters(domain.FilterSet{
		Diagnosis:       "  nevus ",
		BenignMalignant: "   ",
	})

	assert.Equal(t, "nevus", f.Diagnosis)
	assert.Empty(t, f.BenignMalignant)
	params := f.Params()
	assert.Len(t, params, 1)
}
