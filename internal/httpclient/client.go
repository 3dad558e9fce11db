package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// Doer executes an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CompileHeaders validates and canonicalizes a header set. Names may carry
// surrounding blanks; otherwise names must be HTTP tokens and values must be
// free of control characters.
func CompileHeaders(values map[string]string) (http.Header, error) {
	headers := make(http.Header, len(values))
	for key, value := range values {
		if err := ValidateHeaderName(key); err != nil {
			return nil, err
		}
		canonicalKey := http.CanonicalHeaderKey(strings.Trim(key, " \t"))
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}
	return headers, nil
}

// ValidateHeaderName reports whether key, stripped of surrounding blanks, is a
// valid header field name.
func ValidateHeaderName(key string) error {
	if !httpguts.ValidHeaderFieldName(strings.Trim(key, " \t")) {
		return fmt.Errorf("invalid header key %q", key)
	}
	return nil
}

// AppendQuery appends query parameters to target, keeping any existing ones.
func AppendQuery(target string, query url.Values) (string, error) {
	if len(query) == 0 {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target %q: %w", target, err)
	}
	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NewRequest builds a request carrying a private copy of headers.
func NewRequest(ctx context.Context, method, target string, headers http.Header) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if method == "" {
		method = http.MethodGet
	}
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("target URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	if headers != nil {
		req.Header = headers.Clone()
	}
	return req, nil
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          8,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// CloseIdle releases idle connections held by d when it supports it.
func CloseIdle(d Doer) {
	if c, ok := d.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
