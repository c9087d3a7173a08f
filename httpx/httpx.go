package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fusekit/fuse"
)

// ErrorClass tells the resilience layer how to treat an HTTP
// status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means the error is retriable (e.g. 429, 503).
	Transient
	// Permanent means the error is non-retriable (e.g. 400).
	Permanent
)

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — caller injects classification logic
// without modifying the adapter.
type Classifier func(statusCode int) ErrorClass

// DefaultClassifier treats 2xx and 3xx as success, 408, 429
// and 5xx (except 501) as transient, and every other 4xx as
// permanent.
func DefaultClassifier(statusCode int) ErrorClass {
	switch {
	case statusCode < http.StatusBadRequest:
		return Success
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests:
		return Transient
	case statusCode == http.StatusNotImplemented:
		return Permanent
	case statusCode >= http.StatusInternalServerError:
		return Transient
	default:
		return Permanent
	}
}

// StatusError is returned when the Classifier marks a status
// code as Transient or Permanent. The original response
// remains accessible for header inspection; its body has
// been closed so the connection can be reused by a retry.
type StatusError struct {
	// Response is the original HTTP response that triggered
	// the error.
	Response   *http.Response
	StatusCode int
}

// Error returns a human-readable description of the status
// error.
func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.StatusCode)
}

// Client wraps an http.Client with a fuse resilience policy
// and HTTP status code classification.
//
// Pattern: Adapter — bridges net/http and fuse's resilience
// policy by translating HTTP status codes into fuse error
// classification.
type Client struct {
	hc *http.Client
	p  *fuse.Policy[*http.Response]
	cl Classifier
}

// NewClient creates a Client that executes HTTP requests
// through the given fuse policy options. The classifier
// determines how HTTP status codes map to transient or
// permanent errors for retry decisions. A nil classifier
// falls back to [DefaultClassifier]; a nil http.Client falls
// back to http.DefaultClient.
func NewClient(
	name string,
	hc *http.Client,
	cl Classifier,
	opts ...any,
) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}

	if cl == nil {
		cl = DefaultClassifier
	}

	return &Client{
		hc: hc,
		p:  fuse.NewPolicy[*http.Response](name, opts...),
		cl: cl,
	}
}

// Do executes req through the resilience policy. Transport
// errors are classified as transient. Responses whose status
// code the Classifier marks as Transient or Permanent are
// converted into a *StatusError wrapped with the matching
// fuse classification; the response body is closed so the
// connection can be reused by a retried attempt.
//
// Requests carrying a body must set req.GetBody so each
// attempt after the first can rewind it; [http.NewRequest]
// does this for bytes and strings readers. A one-shot body
// with no GetBody fails permanently on the second attempt
// rather than resending a consumed stream.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	first := true

	//nolint:wrapcheck // policy errors carry their own context
	return c.p.Do(
		ctx,
		func(ctx context.Context) (*http.Response, error) {
			if !first {
				if err := rewindBody(req); err != nil {
					return nil, fuse.Permanent(err)
				}
			}
			first = false

			resp, err := c.hc.Do(req.WithContext(ctx))
			if err != nil {
				// Network-level failures are worth retrying.
				return nil, fuse.Transient(
					fmt.Errorf("httpx: do request: %w", err),
				)
			}

			switch c.cl(resp.StatusCode) {
			case Transient:
				statusErr := &StatusError{
					Response:   resp,
					StatusCode: resp.StatusCode,
				}
				resp.Body.Close()

				return nil, fuse.Transient(statusErr)

			case Permanent:
				statusErr := &StatusError{
					Response:   resp,
					StatusCode: resp.StatusCode,
				}
				resp.Body.Close()

				return nil, fuse.Permanent(statusErr)

			case Success:
			}

			return resp, nil
		},
	)
}

// rewindBody restores req.Body for a repeat attempt. The
// first attempt's transport consumed the original body, so a
// replay needs a fresh reader from req.GetBody.
func rewindBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	if req.GetBody == nil {
		return fmt.Errorf(
			"httpx: cannot replay request body: GetBody is not set",
		)
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("httpx: rewind request body: %w", err)
	}

	req.Body = body

	return nil
}

// Get issues a GET request to url through the resilience
// policy.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}

	return c.Do(ctx, req)
}
