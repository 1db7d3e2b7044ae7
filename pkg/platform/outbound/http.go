// Package outbound propagates correlation entries onto outgoing calls so
// downstream services running the same layer can pick them up at their own
// ingress.
package outbound

import (
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"auditrelay/pkg/correlation"
)

// Transport is an http.RoundTripper that copies each configured business key
// present in the request context's correlation scope into the outbound
// headers. Keys absent from the scope produce no header.
type Transport struct {
	next http.RoundTripper
	keys []string
}

// NewTransport wraps next, defaulting to http.DefaultTransport.
func NewTransport(next http.RoundTripper, keys []string) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{next: next, keys: keys}
}

// RoundTrip injects the correlation headers on a clone of the request;
// RoundTrippers must not mutate their input.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	snapshot := correlation.Snapshot(req.Context())
	if len(snapshot) == 0 {
		return t.next.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	correlation.Inject(out.Header, t.keys, snapshot)
	return t.next.RoundTrip(out)
}

// NewClient builds a retrying HTTP client with correlation propagation
// installed, for calls to sibling services.
func NewClient(keys []string) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Transport = NewTransport(rc.HTTPClient.Transport, keys)
	return rc.StandardClient()
}
