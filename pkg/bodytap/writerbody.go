package bodytap

import (
	"io"
	"sync"
)

// WriterBody is a push-based request body.
// It produces its content by writing into the transport through an [io.Pipe].
// The write function is started on the first Read.
//
// A WriterBody can be consumed only once.
type WriterBody struct {
	write func(w io.Writer) error

	mu     sync.Mutex
	pr     *io.PipeReader
	closed bool
}

var _ io.ReadCloser = (*WriterBody)(nil)

// NewWriterBody returns a new body which is produced by write.
// The error returned by write is reported to the reader.
func NewWriterBody(write func(w io.Writer) error) *WriterBody {
	return &WriterBody{write: write}
}

func (b *WriterBody) reader() (*io.PipeReader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, io.ErrClosedPipe
	}
	if b.pr == nil {
		pr, pw := io.Pipe()
		b.pr = pr
		go func() {
			pw.CloseWithError(b.write(pw))
		}()
	}
	return b.pr, nil
}

func (b *WriterBody) Read(p []byte) (int, error) {
	pr, err := b.reader()
	if err != nil {
		return 0, err
	}
	return pr.Read(p)
}

// Close stops the body. A running write function will see [io.ErrClosedPipe].
func (b *WriterBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.pr != nil {
		return b.pr.Close()
	}
	return nil
}

func (b *WriterBody) started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pr != nil || b.closed
}
