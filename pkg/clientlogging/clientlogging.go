// Package clientlogging logs outgoing HTTP requests and incoming responses.
//
// An [Interceptor] records method, URL, headers, timing and payloads of every exchange
// without altering what is transmitted.
// It can be installed on a [net/http.Client] with [InstallClient],
// on a retryablehttp client with [Install]
// or used as transport with [Interceptor.Transport].
//
// Request bodies are duplicated while the transport sends them (see package bodytap).
// Requests with streamed bodies are therefore logged after their body was transmitted,
// all other requests are logged before they are sent.
// Responses are logged once they have been received.
// Failures of the logging are reported to the sink as warning and never reach the caller.
package clientlogging

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ErikKalkoken/go-set"
)

type contextKey string

var contextRequestTime contextKey = "requestTime"

func (c contextKey) String() string {
	return "clientlogging-" + string(c)
}

// RequestTime returns the time a request was intercepted and reports whether it was found.
func RequestTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(contextRequestTime).(time.Time)
	return t, ok
}

// Interceptor logs HTTP exchanges.
//
// This type is designed to be used concurrently.
type Interceptor struct {
	cfg      Config
	sink     Sink
	format   func(Entry) string
	redacted set.Set[string]

	ctx    context.Context // ends pending captures when closed
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a new interceptor.
func New(cfg Config) *Interceptor {
	ic := &Interceptor{
		cfg:    cfg,
		sink:   cfg.Sink,
		format: cfg.Formatter,
	}
	ic.cfg.RedactedHeaders = append([]string(nil), cfg.RedactedHeaders...)
	ic.cfg.BlockedBodyURLs = append([]string(nil), cfg.BlockedBodyURLs...)
	if ic.sink == nil {
		ic.sink = NewSlogSink(nil)
	}
	if ic.format == nil {
		ic.format = Format
	}
	var names []string
	for _, h := range cfg.RedactedHeaders {
		names = append(names, strings.ToLower(h))
	}
	ic.redacted = set.Of(names...)
	ic.ctx, ic.cancel = context.WithCancel(context.Background())
	return ic
}

// Wait blocks until all pending request logs have been emitted or abandoned.
func (ic *Interceptor) Wait() {
	ic.wg.Wait()
}

// Close abandons all pending request logs and waits for them to end.
// Exchanges started later are still logged, except for deferred request bodies.
func (ic *Interceptor) Close() {
	ic.cancel()
	ic.wg.Wait()
}

// isRedacted reports whether the values of a header must not be logged.
func (ic *Interceptor) isRedacted(name string) bool {
	return ic.redacted.Contains(strings.ToLower(name))
}

// isBlocked reports whether bodies of exchanges with this URL must not be logged.
func (ic *Interceptor) isBlocked(u *url.URL) bool {
	if u == nil || len(ic.cfg.BlockedBodyURLs) == 0 {
		return false
	}
	s := u.String()
	for _, b := range ic.cfg.BlockedBodyURLs {
		if strings.Contains(s, b) {
			return true
		}
	}
	return false
}

// emit formats an entry and sends it to the sink.
func (ic *Interceptor) emit(e Entry) {
	defer func() {
		if r := recover(); r != nil {
			ic.warn("Failed to log HTTP exchange", panicError(r))
		}
	}()
	ic.sink.Info(ic.format(e))
}

// warn reports a failure of the logging itself.
func (ic *Interceptor) warn(msg string, err error) {
	defer func() {
		recover() // a failing sink must not reach the caller
	}()
	ic.sink.Warn(msg, err)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
