// Package linefmt formats captured HTTP exchanges into multi-line log messages.
//
// A message starts with a summary line, followed by the header lines and the body,
// each separated by a blank line.
// Header names are listed in sorted order, because [net/http.Header] is a map
// and does not keep the order in which headers were added.
package linefmt

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Redacted replaces values which must never appear in a log.
const Redacted = "REDACTED"

// Entry is a captured request or response ready to be formatted.
type Entry struct {
	Summary string
	Headers []string
	Body    string
	HasBody bool
}

// RequestSummary returns the first line of a request log.
func RequestSummary(method string, u *url.URL, fullURL bool) string {
	return fmt.Sprintf("Sending request: %s %s", method, target(u, fullURL))
}

// ResponseSummary returns the first line of a response log.
func ResponseSummary(d time.Duration, status int, method string, u *url.URL, fullURL bool) string {
	return fmt.Sprintf("Received response: %d ms - %d - %s %s", d.Milliseconds(), status, method, target(u, fullURL))
}

// target returns the full URL or only the host.
// Passwords in full URLs are always redacted.
func target(u *url.URL, fullURL bool) string {
	if u == nil {
		return ""
	}
	if fullURL {
		return u.Redacted()
	}
	return u.Hostname()
}

// HeaderLines returns one line per header with values joined by "; ".
// Lines for header come first, then lines for content.
// Names are sorted since [http.Header] does not keep insertion order.
// Values of headers for which redact reports true are replaced.
func HeaderLines(header, content http.Header, redact func(name string) bool) []string {
	var lines []string
	for _, h := range []http.Header{header, content} {
		for _, name := range slices.Sorted(maps.Keys(h)) {
			values := h[name]
			v := strings.Join(values, "; ")
			if redact != nil && redact(name) {
				v = Redacted
			}
			lines = append(lines, fmt.Sprintf("%s: %s", name, v))
		}
	}
	return lines
}

// Format renders an entry as log message.
//
// The summary comes first, followed by a blank line and the header lines when there are any,
// followed by a blank line and the body when the entry has one.
// A body is always terminated with a newline to separate it from whatever a log handler appends.
func Format(e Entry) string {
	var b strings.Builder
	b.WriteString(e.Summary)
	if len(e.Headers) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(e.Headers, "\n"))
	}
	if e.HasBody {
		b.WriteString("\n\n")
		b.WriteString(e.Body)
		b.WriteString("\n")
	}
	return b.String()
}
