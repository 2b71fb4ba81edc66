package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles", r.URL.Path)
		assert.Equal(t, "health", r.URL.Query().Get("category"))
		assert.Equal(t, "KE", r.URL.Query().Get("region"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))

		json.NewEncoder(w).Encode(Result{
			Articles: []Article{
				{ID: "a1", Title: "First", Category: "health"},
				{ID: "a2", Title: "Second", Category: "health"},
			},
			HasMore: true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.FetchArticles(context.Background(), Filters{
		Category: "health",
		Region:   "KE",
		PageSize: 10,
	})
	require.NoError(t, err)

	require.Len(t, result.Articles, 2)
	assert.Equal(t, "a1", result.Articles[0].ID)
	assert.True(t, result.HasMore)
}

func TestFetchArticlesNoFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		json.NewEncoder(w).Encode(Result{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.FetchArticles(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Empty(t, result.Articles)
	assert.False(t, result.HasMore)
}

func TestFetchArticlesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchArticles(context.Background(), Filters{})
	assert.Error(t, err)
}
