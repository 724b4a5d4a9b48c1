package httpds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFirstBytes_LimitsToN(t *testing.T) {
	t.Parallel()

	var sawRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRange = r.Header.Get("Range")
		_, _ = w.Write([]byte("guid,zip_code,city\n"))
	}))
	defer srv.Close()

	got, err := fastClient(0).FetchFirstBytes(context.Background(), srv.URL, 5)
	require.NoError(t, err)

	assert.Equal(t, "guid,", string(got))
	assert.Equal(t, "bytes=0-4", sawRange)
}

func TestFetchFirstBytes_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := fastClient(0)
	_, err := c.FetchFirstBytes(context.Background(), srv.URL, 0)
	assert.ErrorContains(t, err, "n must be > 0")

	_, err = c.FetchFirstBytes(context.Background(), srv.URL, 10)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}
