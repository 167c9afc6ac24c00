package clientlogging

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ErikKalkoken/clientlogging/internal/charset"
	"github.com/ErikKalkoken/clientlogging/internal/linefmt"
)

// ObserveResponse logs a response which was received at the given time.
//
// When bodies are logged, the body is read completely and the original body is closed.
// The caller then receives an in-memory body with the same content.
// Otherwise the body is not touched and the caller remains responsible for draining it.
func (ic *Interceptor) ObserveResponse(resp *http.Response, receivedAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			ic.warn("Failed to log HTTP response", panicError(r))
		}
	}()
	var method string
	var d time.Duration
	req := resp.Request
	if req != nil {
		method = req.Method
		if sentAt, ok := RequestTime(req.Context()); ok {
			d = max(receivedAt.Sub(sentAt), 0)
		}
	}
	e := Entry{Summary: linefmt.ResponseSummary(d, resp.StatusCode, method, requestURL(req), ic.cfg.LogFullURL)}
	if ic.cfg.LogHeaders {
		e.Headers = linefmt.HeaderLines(resp.Header, nil, ic.isRedacted)
	}
	if !ic.cfg.LogBody {
		ic.emit(e)
		return
	}
	if req != nil && ic.isBlocked(req.URL) {
		e.Body, e.HasBody = linefmt.Redacted, true
		ic.emit(e)
		return
	}
	data, err := copyResponseBody(resp)
	if err != nil {
		ic.warn("Failed to read HTTP response body", err)
		ic.emit(e)
		return
	}
	var truncated int64
	if ic.cfg.MaxBodySize > 0 && int64(len(data)) > ic.cfg.MaxBodySize {
		truncated = int64(len(data)) - ic.cfg.MaxBodySize
		data = data[:ic.cfg.MaxBodySize]
	}
	name := charset.FromContentType(resp.Header.Get("Content-Type"))
	e.Body, e.HasBody, err = ic.decodeBody(data, truncated, name)
	if err != nil {
		ic.warn("Failed to decode HTTP response body", err)
	}
	ic.emit(e)
}

// copyResponseBody returns a copy of the body of r. It preserves the body.
//
// The original body is drained and closed.
// When reading fails, the caller receives the bytes read so far followed by the error.
func copyResponseBody(r *http.Response) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), errReader{err}))
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

func requestURL(req *http.Request) *url.URL {
	if req == nil {
		return nil
	}
	return req.URL
}
