// Package httpx provides a resilient HTTP client adapter
// for the fuse library.
//
// Client wraps a standard http.Client with a fuse resilience
// policy and a user-provided status code classifier that maps
// HTTP response codes to transient or permanent errors.
package httpx
