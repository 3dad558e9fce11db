// Package httpclient provides HTTP client utilities for the viking load generator.
//
// The httpclient package handles request construction and execution:
//   - One [*http.Client] per worker, built by [NewClient] with load-testing
//     friendly connection settings
//   - Request construction from a rendered target and a shared, read-only header set
//   - Bounded response body reading for the ledger
//
// # Request Building
//
// Use [NewRequest] with a context that carries the per-request timeout:
//
//	ctx, cancel := context.WithTimeout(ctx, timeout)
//	defer cancel()
//	req, err := httpclient.NewRequest(ctx, http.MethodGet, target, headers)
//
// The header set is copied into the request, so callers may share one
// [http.Header] across goroutines as long as nobody mutates it.
//
// # HTTP Client
//
// [NewClient] creates a client with the given overall timeout (0 disables it):
//
//	client := httpclient.NewClient(0)
//	resp, err := client.Do(req)
//
// Any error returned by [Doer.Do] is a transport error: timeouts, refused
// connections, DNS and TLS failures are not distinguished.
package httpclient
