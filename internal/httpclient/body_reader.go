package httpclient

import (
	"io"
	"net/http"
)

// MaxBodyReadSize bounds how much of a response body is kept.
const MaxBodyReadSize = 1024 * 1024

// ConsumeBody drains and closes the response body. When keep is true up to
// MaxBodyReadSize bytes are returned; the rest is discarded.
func ConsumeBody(resp *http.Response, keep bool) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", nil
	}
	defer resp.Body.Close()

	if !keep {
		_, err := io.Copy(io.Discard, resp.Body)
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyReadSize))
	if err != nil {
		return "", err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return string(body), nil
}
