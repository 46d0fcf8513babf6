package httpclient

import (
	"net/http"
	"time"
)

type Client struct {
	http *http.Client
}

// New returns a client with the given total-request timeout. A zero
// timeout disables the bound; callers are expected to carry deadlines
// in the request context instead.
func New(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}
