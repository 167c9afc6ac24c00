package clientlogging

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ErikKalkoken/clientlogging/internal/charset"
	"github.com/ErikKalkoken/clientlogging/internal/linefmt"
	"github.com/ErikKalkoken/clientlogging/pkg/bodytap"
)

// InterceptRequest logs a request and returns the request to be sent instead.
//
// The returned request is a shallow copy of req with the same method, URL and headers.
// Its context carries the request time (see [RequestTime]).
// When bodies are logged, a streamed body is replaced by a tapped body
// and the request is logged after the transport has sent it completely.
// When the transport never finishes sending the body, the request is not logged.
func (ic *Interceptor) InterceptRequest(req *http.Request) (out *http.Request) {
	out = req.WithContext(context.WithValue(req.Context(), contextRequestTime, time.Now()))
	defer func() {
		if r := recover(); r != nil {
			ic.warn("Failed to log HTTP request", panicError(r))
		}
	}()
	e := Entry{Summary: linefmt.RequestSummary(req.Method, req.URL, ic.cfg.LogFullURL)}
	if ic.cfg.LogHeaders {
		header, content := splitRequestHeaders(req)
		e.Headers = linefmt.HeaderLines(header, content, ic.isRedacted)
	}
	if !ic.cfg.LogBody {
		ic.emit(e)
		return out
	}
	if ic.isBlocked(req.URL) {
		e.Body, e.HasBody = linefmt.Redacted, true
		ic.emit(e)
		return out
	}
	src, err := bodytap.Classify(req)
	if err != nil {
		ic.warn("Failed to capture HTTP request body", err)
		ic.emit(e)
		return out
	}
	if src.Kind == bodytap.KindNone {
		ic.emit(e)
		return out
	}
	pass, c, err := bodytap.Tap(src, ic.cfg.MaxBodySize)
	if err != nil {
		ic.warn("Failed to capture HTTP request body", err)
		ic.emit(e)
		return out
	}
	name := charset.FromContentType(req.Header.Get("Content-Type"))
	if src.Kind == bodytap.KindBytes {
		// in-memory bodies are complete already
		ic.emitCaptured(context.Background(), e, c, name)
		return out
	}
	out.Body = pass
	ic.emitLater(out.Context(), e, c, name)
	return out
}

// emitLater emits a request entry in the background once its body capture is complete.
// It is abandoned when the request context ends or the interceptor is closed.
func (ic *Interceptor) emitLater(ctx context.Context, e Entry, c *bodytap.Capture, charsetName string) {
	ic.wg.Add(1)
	go func() {
		defer ic.wg.Done()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(ic.ctx, cancel)
		defer stop()
		ic.emitCaptured(ctx, e, c, charsetName)
	}()
}

// emitCaptured waits for a capture and emits the entry with the captured body.
// Nothing is emitted for abandoned captures.
func (ic *Interceptor) emitCaptured(ctx context.Context, e Entry, c *bodytap.Capture, charsetName string) {
	data, err := c.Wait(ctx)
	if err != nil {
		return
	}
	e.Body, e.HasBody, err = ic.decodeBody(data, c.Truncated(), charsetName)
	if err != nil {
		ic.warn("Failed to decode HTTP request body", err)
	}
	ic.emit(e)
}

// decodeBody returns the text of a captured body.
// The text of truncated bodies ends with a note about the missing bytes.
func (ic *Interceptor) decodeBody(data []byte, truncated int64, charsetName string) (string, bool, error) {
	if truncated > 0 && charset.IsUTF8(charsetName) {
		data = charset.TrimPartialRune(data)
	}
	s, err := charset.Decode(data, charsetName)
	if err != nil {
		return "", false, err
	}
	if truncated > 0 {
		s += fmt.Sprintf("\n... (%s truncated)", humanize.Bytes(uint64(truncated)))
	}
	return s, true, nil
}

// splitRequestHeaders returns the general headers and the content headers of a request.
func splitRequestHeaders(req *http.Request) (http.Header, http.Header) {
	header := make(http.Header, len(req.Header))
	content := make(http.Header)
	for k, v := range req.Header {
		switch http.CanonicalHeaderKey(k) {
		case "Content-Type", "Content-Length":
			content[k] = v
		default:
			header[k] = v
		}
	}
	if req.ContentLength > 0 && len(content.Values("Content-Length")) == 0 {
		content.Set("Content-Length", strconv.FormatInt(req.ContentLength, 10))
	}
	return header, content
}
