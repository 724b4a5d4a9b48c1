package httpds

import (
	"context"
	"io"
	"net/http"
)

// Source is a datasource.Source that downloads one URL.
type Source struct {
	client  *Client
	url     string
	headers http.Header
}

// NewSource binds url to client. headers are sent with every Open.
func NewSource(client *Client, url string, headers http.Header) *Source {
	return &Source{client: client, url: url, headers: headers}
}

// URL returns the configured URL.
func (s *Source) URL() string { return s.url }

// Open issues a GET and returns the response body. Any status outside 2xx
// is a *StatusError.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{Method: http.MethodGet, URL: s.url, Code: resp.StatusCode}
	}
	return resp.Body, nil
}

// Peek returns up to n leading bytes of the source. It is used to check that
// a remote extract is reachable and carries the expected header before a run.
func (s *Source) Peek(ctx context.Context, n int) ([]byte, error) {
	return s.client.FetchFirstBytes(ctx, s.url, n)
}
