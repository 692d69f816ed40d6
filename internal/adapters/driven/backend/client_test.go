package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Warren2005/medical-microscopy/internal/core/domain"
)

var sampleResponse = `{
	"query_processing_time_ms": 12.3,
	"search_time_ms": 4.5,
	"total_time_ms": 20.1,
	"result_count": 2,
	"results": [
		{
			"image": {
				"id": "11111111-1111-1111-1111-111111111111",
				"dataset_source": "isic",
				"image_path": "isic/a.jpg",
				"diagnosis": "melanoma",
				"tissue_type": null,
				"benign_malignant": "malignant",
				"age": 55,
				"sex": "female"
			},
			"similarity_score": 0.97,
			"image_url": "http://minio/a.jpg"
		},
		{
			"image": {
				"id": "22222222-2222-2222-2222-222222222222",
				"dataset_source": null,
				"image_path": "isic/b.jpg",
				"diagnosis": null,
				"tissue_type": null,
				"benign_malignant": null,
				"age": null,
				"sex": null
			},
			"similarity_score": 0.81,
			"image_url": "http://minio/b.jpg"
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/v1"})
}

// TestClient_SearchByImage tests the happy path: multipart upload,
// filter parameters on the query string, decoded response.
func TestClient_SearchByImage(t *testing.T) {
	var gotPath, gotQuery, gotContentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte{0xFF, 0xD8}, data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleResponse) //nolint:errcheck
	})

	resp, err := c.SearchByImage(context.Background(),
		domain.ImageQuery{Blob: []byte{0xFF, 0xD8}, MIMEType: "image/jpeg"},
		domain.FilterSet{Diagnosis: "melanoma"}, 10)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/search/similar", gotPath)
	assert.Contains(t, gotQuery, "limit=10")
	assert.Contains(t, gotQuery, "diagnosis=melanoma")
	assert.NotContains(t, gotQuery, "tissue_type")
	assert.Contains(t, gotContentType, "multipart/form-data")

	assert.Equal(t, 2, resp.ResultCount)
	require.Len(t, resp.Results, 2)
	first := resp.Results[0]
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", first.ImageID)
	assert.InDelta(t, 0.97, first.SimilarityScore, 0.001)
	assert.Equal(t, "melanoma", first.Diagnosis)
	assert.Empty(t, first.TissueType)
	require.NotNil(t, first.Age)
	assert.Equal(t, 55, *first.Age)

	// Null metadata flattens to zero values.
	second := resp.Results[1]
	assert.Empty(t, second.Diagnosis)
	assert.Nil(t, second.Age)
}

// TestClient_SearchByImage_RejectsMIME tests local validation: no
// request is ever made for an unacceptable media type.
func TestClient_SearchByImage_RejectsMIME(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.SearchByImage(context.Background(),
		domain.ImageQuery{Blob: []byte{1}, MIMEType: "application/pdf"},
		domain.FilterSet{}, 10)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.False(t, called)
}

// TestClient_SearchByText tests the JSON body including filter strip.
func TestClient_SearchByText(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search/text", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, sampleResponse) //nolint:errcheck
	})

	_, err := c.SearchByText(context.Background(),
		domain.TextQuery{Query: "irregular pigment network"},
		domain.FilterSet{TissueType: "epidermis"}, 5)
	require.NoError(t, err)

	assert.Equal(t, "irregular pigment network", got["query"])
	assert.Equal(t, float64(5), got["top_k"])
	assert.Equal(t, "epidermis", got["tissue_type"])
	// Absent filters are omitted entirely, never sent empty.
	assert.NotContains(t, got, "diagnosis")
	assert.NotContains(t, got, "benign_malignant")
}

// TestClient_NetworkErrorEnvelope tests that the backend message is
// surfaced verbatim from the error envelope.
func TestClient_NetworkErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"message":"qdrant unavailable"}}`) //nolint:errcheck
	})

	_, err := c.SearchByText(context.Background(), domain.TextQuery{Query: "q"}, domain.FilterSet{}, 5)

	var nerr *domain.NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, http.StatusServiceUnavailable, nerr.StatusCode)
	assert.Equal(t, "qdrant unavailable", nerr.Message)
}

// TestClient_ProtocolError tests that an undecodable success body is a
// contract violation, not a silent empty result.
func TestClient_ProtocolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>") //nolint:errcheck
	})

	_, err := c.SearchByText(context.Background(), domain.TextQuery{Query: "q"}, domain.FilterSet{}, 5)

	var perr *domain.ProtocolError
	require.True(t, errors.As(err, &perr))
}

// TestClient_FetchDetail tests detail hydration and the 404 mapping.
func TestClient_FetchDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/images/known":
			io.WriteString(w, `{
				"image": {"id": "known", "image_path": "p.jpg", "diagnosis": "nevus"},
				"image_url": "http://minio/p.jpg"
			}`) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	item, err := c.FetchDetail(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, "known", item.ImageID)
	assert.Equal(t, "nevus", item.Diagnosis)
	assert.Equal(t, "http://minio/p.jpg", item.ImageURL)

	_, err = c.FetchDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestClient_FetchFilterOptions tests vocabulary decoding.
func TestClient_FetchFilterOptions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/images/filters", r.URL.Path)
		io.WriteString(w, `{
			"diagnoses": ["melanoma", "nevus"],
			"tissue_types": ["epidermis"],
			"benign_malignant": ["benign", "malignant"]
		}`) //nolint:errcheck
	})

	opts, err := c.FetchFilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"melanoma", "nevus"}, opts.Diagnoses)
	assert.Equal(t, []string{"epidermis"}, opts.TissueTypes)
	assert.Len(t, opts.BenignMalignant, 2)
}

// TestClient_FetchHealth tests status mapping including the
// never-propagate failure contract.
func TestClient_FetchHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"status": "degraded",
			"services": {"api": "healthy", "qdrant": "unhealthy"},
			"version": "1.4.0"
		}`) //nolint:errcheck
	})

	h := c.FetchHealth(context.Background())
	assert.Equal(t, domain.HealthDegraded, h.State)
	assert.Equal(t, "unhealthy", h.Services["qdrant"])
	assert.Equal(t, "1.4.0", h.Version)
}

// TestClient_FetchHealth_Unreachable tests the probe failure mapping.
func TestClient_FetchHealth_Unreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1/api/v1"})

	h := c.FetchHealth(context.Background())
	assert.Equal(t, domain.HealthUnreachable, h.State)
}

// TestClient_SubmitFeedback tests the vote wire encoding.
func TestClient_SubmitFeedback(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"id":"f-1","result_image_id":"img-1","vote":-1}`) //nolint:errcheck
	})

	err := c.SubmitFeedback(context.Background(), domain.Vote{
		ResultImageID: "img-1",
		Direction:     domain.VoteDown,
	})
	require.NoError(t, err)

	assert.Equal(t, "img-1", got["result_image_id"])
	assert.Equal(t, float64(-1), got["vote"])
	assert.NotContains(t, got, "query_image_id")
}

// TestClient_SubmitFeedback_Failure tests the non-2xx mapping.
func TestClient_SubmitFeedback_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.SubmitFeedback(context.Background(), domain.Vote{
		ResultImageID: "img-1",
		Direction:     domain.VoteUp,
	})

	var nerr *domain.NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, http.StatusInternalServerError, nerr.StatusCode)
}

// TestClient_FetchExplainability tests the binary artifact pull.
func TestClient_FetchExplainability(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/explain", r.URL.Path)
		assert.Equal(t, "img-1", r.URL.Query().Get("image_id"))
		w.Header().Set("Content-Type", "image/png")
		w.Write(png) //nolint:errcheck
	})

	data, err := c.FetchExplainability(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

// TestClient_SubmitBatch tests batch job submission and polling.
func TestClient_SubmitBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/search/batch":
			io.WriteString(w, `{"job_id":"job-1","status":"processing","message":"accepted"}`) //nolint:errcheck
		case "/api/v1/jobs/job-1":
			io.WriteString(w, `{
				"job_id":"job-1","status":"completed",
				"total_images":4,"processed_images":4,"elapsed_ms":812.0
			}`) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	jobID, err := c.SubmitBatch(ctx, []byte("PK\x03\x04"), domain.FilterSet{}, 5)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	status, err := c.FetchBatchStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 4, status.ProcessedImages)

	_, err = c.FetchBatchStatus(ctx, "job-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
