package clientlogging

import (
	"log/slog"
	"os"

	"github.com/ErikKalkoken/clientlogging/internal/linefmt"
)

// Entry is a captured request or response ready to be formatted.
type Entry = linefmt.Entry

// Config configures an [Interceptor].
//
// WARN: URL queries, headers and payloads may contain sensitive data.
type Config struct {
	// Whether to log the full URL instead of only the host.
	LogFullURL bool

	// Whether to log request and response headers.
	// Headers are logged sorted by name.
	LogHeaders bool

	// Whether to log request and response payloads.
	LogBody bool

	// Destination of log lines. If nil, a text logger writing to stderr is used.
	Sink Sink

	// Formatter renders entries. If nil, [Format] is used.
	Formatter func(Entry) string

	// Values of these headers are logged as REDACTED. Names are case insensitive.
	RedactedHeaders []string

	// Bodies of exchanges with an URL containing one of these strings are logged as REDACTED.
	BlockedBodyURLs []string

	// Maximum number of body bytes to log. 0 means no limit.
	// Transmitted bodies are never affected.
	MaxBodySize int64
}

// Format is the default formatter.
func Format(e Entry) string {
	return linefmt.Format(e)
}

// Sink receives formatted log lines.
type Sink interface {
	// Info receives a log line about a request or response.
	Info(msg string)
	// Warn receives a failure of the logging itself.
	Warn(msg string, err error)
}

type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink which writes to a slog logger.
// If logger is nil, a text logger writing to stderr is used.
func NewSlogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slogSink{logger: logger}
}

func (s slogSink) Info(msg string) {
	s.logger.Info(msg)
}

func (s slogSink) Warn(msg string, err error) {
	s.logger.Warn(msg, "error", err)
}

// NopSink returns a sink which discards everything.
func NopSink() Sink {
	return slogSink{logger: slog.New(slog.DiscardHandler)}
}
