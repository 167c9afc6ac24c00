// Package bodytap duplicates HTTP request bodies for observation.
//
// A tap splits a body into a pass-through stream, which is handed to the transport unchanged,
// and a [Capture], which receives a copy of every byte the transport consumed.
// The capture is complete only after the transport has drained the pass-through stream.
//
// Three body shapes are supported, see [Kind]:
// in-memory bodies can be replayed and need no tap,
// pull-based bodies are tapped by wrapping Read
// and push-based bodies ([WriterBody]) are tapped by wrapping the sink they write into.
package bodytap

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrUnsupportedBody is returned when a body can not be tapped.
	// The body should then be sent unmodified without capturing it.
	ErrUnsupportedBody = errors.New("bodytap: unsupported body")

	// ErrAbandoned reports that the transport stopped consuming a body before its end.
	ErrAbandoned = errors.New("bodytap: capture abandoned")
)

// Kind is the shape of a request body.
type Kind uint8

const (
	KindNone   Kind = iota // no body
	KindBytes              // in-memory, replayable through GetBody
	KindReader             // pull-based, the transport reads from it
	KindWriter             // push-based, the body writes itself into the transport
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBytes:
		return "bytes"
	case KindReader:
		return "reader"
	case KindWriter:
		return "writer"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Source is a classified request body.
type Source struct {
	Kind Kind
	// Body is the original body.
	Body io.ReadCloser
	// Bytes is the content of a KindBytes body.
	Bytes []byte
	// Writer is the body of a KindWriter source.
	Writer *WriterBody
}

// MaxInMemorySize is the largest replayable body which is classified as in-memory.
const MaxInMemorySize = 64 << 10

// Classify determines the shape of the body of req.
//
// A body is in-memory when it is replayable through GetBody and its length is known
// and does not exceed [MaxInMemorySize]. Its content is then read from a copy,
// which does not consume req.Body.
// All other bodies are pull-based, even when GetBody is set,
// because a replayable body may still be backed by a stream.
func Classify(req *http.Request) (Source, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return Source{Kind: KindNone, Body: req.Body}, nil
	}
	if wb, ok := req.Body.(*WriterBody); ok {
		if wb.started() {
			return Source{}, fmt.Errorf("%w: writer body already consumed", ErrUnsupportedBody)
		}
		return Source{Kind: KindWriter, Body: req.Body, Writer: wb}, nil
	}
	if req.GetBody != nil && req.ContentLength > 0 && req.ContentLength <= MaxInMemorySize {
		rc, err := req.GetBody()
		if err != nil {
			return Source{}, fmt.Errorf("%w: get body: %w", ErrUnsupportedBody, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, req.ContentLength))
		if err != nil {
			return Source{}, fmt.Errorf("%w: read body copy: %w", ErrUnsupportedBody, err)
		}
		return Source{Kind: KindBytes, Body: req.Body, Bytes: data}, nil
	}
	return Source{Kind: KindReader, Body: req.Body}, nil
}

// Tap returns a pass-through body to be sent instead of the original body of src
// and a capture which will receive the transmitted bytes.
//
// The capture keeps at most limit bytes, with 0 meaning no limit.
// The pass-through body is never affected by the limit.
func Tap(src Source, limit int64) (io.ReadCloser, *Capture, error) {
	c := newCapture(limit)
	switch src.Kind {
	case KindNone:
		c.resolve(nil)
		return src.Body, c, nil
	case KindBytes:
		c.write(src.Bytes)
		c.resolve(nil)
		return src.Body, c, nil
	case KindReader:
		if src.Body == nil {
			return nil, nil, fmt.Errorf("%w: reader source without body", ErrUnsupportedBody)
		}
		return &teeReader{rc: src.Body, c: c}, c, nil
	case KindWriter:
		if src.Writer == nil {
			return nil, nil, fmt.Errorf("%w: writer source without writer", ErrUnsupportedBody)
		}
		return newTeeWriterBody(src.Writer, c), c, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedBody, src.Kind)
}

// teeReader copies every chunk read by the transport into a capture.
type teeReader struct {
	rc io.ReadCloser
	c  *Capture
}

func (t *teeReader) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	if n > 0 {
		t.c.write(p[:n])
	}
	if err == io.EOF {
		t.c.resolve(nil)
	} else if err != nil {
		t.c.resolve(fmt.Errorf("%w: %w", ErrAbandoned, err))
	}
	return n, err
}

func (t *teeReader) Close() error {
	err := t.rc.Close()
	t.c.resolve(ErrAbandoned)
	return err
}

// newTeeWriterBody returns a writer body which writes the content of wb
// into both the transport and the capture.
func newTeeWriterBody(wb *WriterBody, c *Capture) *teeWriterBody {
	b := &teeWriterBody{c: c}
	b.WriterBody = NewWriterBody(func(w io.Writer) error {
		err := wb.write(io.MultiWriter(w, captureWriter{c}))
		if err != nil {
			c.resolve(fmt.Errorf("%w: %w", ErrAbandoned, err))
			return err
		}
		// io.Pipe only returns from Write once the reader consumed the data,
		// so at this point the transport has received every byte.
		c.resolve(nil)
		return nil
	})
	return b
}

type teeWriterBody struct {
	*WriterBody
	c *Capture
}

func (b *teeWriterBody) Close() error {
	err := b.WriterBody.Close()
	b.c.resolve(ErrAbandoned)
	return err
}

type captureWriter struct {
	c *Capture
}

func (w captureWriter) Write(p []byte) (int, error) {
	w.c.write(p)
	return len(p), nil
}
