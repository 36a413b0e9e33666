package art

import "net/http"

// SetHTTPClient sets the underlying HTTP client which will be used by the Client.
// Only useful for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}
