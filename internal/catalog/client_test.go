package catalog

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Search_ReturnsResults(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"data":[{"attributes":{"release":"Show.S01E01","download_count":10,"files":[{"file_id":42}]}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "", "")
	results, err := c.Search(SearchQuery{Query: "Show"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "42", results[0].FileID)
}

func TestHTTPClient_Search_EmptyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "", "")
	_, err := c.Search(SearchQuery{Query: "Nothing"})
	require.Error(t, err)
}

func TestHTTPClient_LoginWithoutCredentialsIsNoop(t *testing.T) {
	c := NewHTTPClient("http://example.invalid", "key", "", "")
	require.NoError(t, c.Login())
}
