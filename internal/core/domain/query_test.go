package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFilterSet_Params tests that only non-empty dimensions are emitted.
func TestFilterSet_Params(t *testing.T) {
	f := FilterSet{TissueType: "melanoma"}
	params := f.Params()

	assert.Len(t, params, 1)
	assert.Equal(t, "melanoma", params[FilterTissueType])
	assert.NotContains(t, params, FilterDiagnosis)
	assert.NotContains(t, params, FilterBenignMalignant)
}

// TestFilterSet_ParamsEmpty tests an unconstrained filter set.
func TestFilterSet_ParamsEmpty(t *testing.T) {
	f := FilterSet{}

	assert.True(t, f.IsZero())
	assert.Empty(t, f.Params())
}

// TestFilterSet_ParamsAll tests all three dimensions together.
func TestFilterSet_ParamsAll(t *testing.T) {
	f := FilterSet{
		Diagnosis:       "nevus",
		TissueType:      "epidermis",
		BenignMalignant: "benign",
	}
	params := f.Params()

	assert.Len(t, params, 3)
	assert.Equal(t, "nevus", params[FilterDiagnosis])
	assert.Equal(t, "epidermis", params[FilterTissueType])
	assert.Equal(t, "benign", params[FilterBenignMalignant])
}

// TestAllowedImageMIME tests the accepted media type set.
func TestAllowedImageMIME(t *testing.T) {
	assert.True(t, AllowedImageMIME("image/jpeg"))
	assert.True(t, AllowedImageMIME("image/png"))
	assert.True(t, AllowedImageMIME("image/tiff"))
	assert.False(t, AllowedImageMIME("application/pdf"))
	assert.False(t, AllowedImageMIME("image/gif"))
	assert.False(t, AllowedImageMIME(""))
}

// TestModality_String tests modality names.
func TestModality_String(t *testing.T) {
	assert.Equal(t, "image", ModalityImage.String())
	assert.Equal(t, "text", ModalityText.String())
}
