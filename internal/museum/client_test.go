package museum

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMuseum struct {
	mux        *http.ServeMux
	records    []map[string]any // очередь ответов поиска, по одному за запрос
	searchHits int
	imageHits  int
	imageBytes []byte
	imageCode  int
}

func newFakeMuseum(t *testing.T) (*fakeMuseum, *httptest.Server) {
	t.Helper()
	f := &fakeMuseum{
		mux:        http.NewServeMux(),
		imageBytes: []byte("not-really-a-jpeg"),
		imageCode:  http.StatusOK,
	}
	f.mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		idx := f.searchHits
		f.searchHits++
		if idx >= len(f.records) {
			idx = len(f.records) - 1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"records": []any{f.records[idx]}})
	})
	f.mux.HandleFunc("/img/", func(w http.ResponseWriter, _ *http.Request) {
		f.imageHits++
		if f.imageCode != http.StatusOK {
			w.WriteHeader(f.imageCode)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(f.imageBytes)
	})
	ts := httptest.NewServer(f.mux)
	t.Cleanup(ts.Close)
	return f, ts
}

func newClient(ts *httptest.Server, maxAttempts int) *Client {
	return New(ts.Client(), Config{
		SearchURL:   ts.URL + "/search",
		ImageURL:    ts.URL + "/img/%s/%d/%d",
		ImageSize:   800,
		MaxAttempts: maxAttempts,
	}, zap.NewNop().Sugar())
}

func TestFetchRandomArtwork(t *testing.T) {
	f, ts := newFakeMuseum(t)
	f.records = []map[string]any{{
		"_primaryImageId":     "2006AB1234",
		"_primaryTitle":       "The Vase",
		"_primaryMaker__name": "Kitagawa Utamaro",
		"_primaryDate":        "ca. 1790",
		"systemNumber":        "O745",
	}}

	art, err := newClient(ts, 5).FetchRandomArtwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "The Vase", art.Title)
	assert.Equal(t, "image/jpeg", art.MimeType)
	wantPrefix := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.imageBytes)
	assert.Equal(t, wantPrefix, art.Image)

	// отсутствующие поля заменены сентинелами
	assert.Equal(t, "Kitagawa Utamaro", art.Details.Artist)
	assert.Equal(t, "ca. 1790", art.Details.Date)
	assert.Equal(t, "Unknown Place", art.Details.Place)
	assert.Equal(t, "Unknown Type", art.Details.ObjectType)
	assert.Equal(t, "O745", art.Details.SystemNumber)
}

func TestFetchRandomArtworkUntitled(t *testing.T) {
	f, ts := newFakeMuseum(t)
	f.records = []map[string]any{{"_primaryImageId": "X"}}

	art, err := newClient(ts, 5).FetchRandomArtwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Untitled", art.Title)
	assert.Equal(t, "Unknown Artist", art.Details.Artist)
	assert.Equal(t, "N/A", art.Details.SystemNumber)
}

func TestRetryOnImagelessRecord(t *testing.T) {
	f, ts := newFakeMuseum(t)
	f.records = []map[string]any{
		{"systemNumber": "O1"}, // без изображения — берём следующую
		{"systemNumber": "O2"},
		{"_primaryImageId": "Y", "systemNumber": "O3"},
	}

	art, err := newClient(ts, 5).FetchRandomArtwork(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "O3", art.Details.SystemNumber)
	assert.Equal(t, 3, f.searchHits)
	assert.Equal(t, 1, f.imageHits)
}

func TestRetryExhaustion(t *testing.T) {
	f, ts := newFakeMuseum(t)
	f.records = []map[string]any{{"systemNumber": "O1"}}

	_, err := newClient(ts, 3).FetchRandomArtwork(context.Background())
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 3, f.searchHits)
	assert.Zero(t, f.imageHits)
}

func TestEmptyListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"records":[]}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	_, err := newClient(ts, 5).FetchRandomArtwork(context.Background())
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.True(t, strings.Contains(err.Error(), "no artwork found"))
}

func TestImageFetchFailure(t *testing.T) {
	f, ts := newFakeMuseum(t)
	f.records = []map[string]any{{"_primaryImageId": "Z"}}
	f.imageCode = http.StatusInternalServerError

	_, err := newClient(ts, 5).FetchRandomArtwork(context.Background())
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
}
