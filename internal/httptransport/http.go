// Package httptransport attaches request and response interceptors to HTTP clients.
package httptransport

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Interceptor is called before a request is sent and after a response was received.
type Interceptor interface {
	// InterceptRequest returns the request to be sent instead of req.
	// It must not modify req.
	InterceptRequest(req *http.Request) *http.Request

	// ObserveResponse is called once per response, received at the given time.
	ObserveResponse(resp *http.Response, receivedAt time.Time)
}

// LoggedTransport is a [http.RoundTripper] which passes every exchange through an interceptor.
//
// Requests failing in the underlying transport are not observed.
// The zero value is a valid transport which does not intercept.
type LoggedTransport struct {
	// Transport used to make requests. If nil, [http.DefaultTransport] is used.
	Transport http.RoundTripper

	Interceptor Interceptor
}

var _ http.RoundTripper = (*LoggedTransport)(nil)

func (t LoggedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if t.Interceptor == nil {
		return transport.RoundTrip(req)
	}
	sent := t.Interceptor.InterceptRequest(req)
	resp, err := transport.RoundTrip(sent)
	if err != nil {
		return resp, err
	}
	resp.Request = sent
	t.Interceptor.ObserveResponse(resp, time.Now())
	resp.Request = req
	return resp, nil
}

// InstallHooks attaches an interceptor to the log hooks of a retryablehttp client.
// Hooks already configured are kept and called first.
//
// The request hook runs before every attempt, so each attempt is logged.
func InstallHooks(c *retryablehttp.Client, ic Interceptor) {
	prevRequestHook := c.RequestLogHook
	c.RequestLogHook = func(l retryablehttp.Logger, req *http.Request, attempt int) {
		if prevRequestHook != nil {
			prevRequestHook(l, req, attempt)
		}
		// the client sends the request it handed to the hook
		*req = *ic.InterceptRequest(req)
	}
	prevResponseHook := c.ResponseLogHook
	c.ResponseLogHook = func(l retryablehttp.Logger, resp *http.Response) {
		if prevResponseHook != nil {
			prevResponseHook(l, resp)
		}
		ic.ObserveResponse(resp, time.Now())
	}
}
