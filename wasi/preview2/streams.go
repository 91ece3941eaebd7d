package preview2

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/wippyai/plugin-reactor/poll"
)

// InputStreamResource is a WASI input stream over in-memory bytes or an
// io.Reader. Reader-backed streams are filled by a background pump so that
// Read never blocks; the stream is ready while buffered data or a terminal
// condition is available.
type InputStreamResource struct {
	reader io.Reader
	cond   *sync.Cond
	err    error
	buf    []byte
	sig    poll.Signal
	mu     sync.Mutex
	closed bool
}

// NewInputStreamResource creates a stream that yields data and then closes.
func NewInputStreamResource(data []byte) *InputStreamResource {
	s := &InputStreamResource{buf: data, err: io.EOF}
	s.cond = sync.NewCond(&s.mu)
	s.sig.Set()
	return s
}

// NewInputStreamReader creates a stream fed from r.
func NewInputStreamReader(r io.Reader) *InputStreamResource {
	s := &InputStreamResource{reader: r}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

func (s *InputStreamResource) pump() {
	chunk := make([]byte, DefaultBufferSize)
	for {
		n, err := s.reader.Read(chunk)

		s.mu.Lock()
		s.buf = append(s.buf, chunk[:n]...)
		if err != nil {
			s.err = err
		}
		if len(s.buf) > 0 || s.err != nil {
			s.sig.Set()
		}
		for len(s.buf) > 0 && s.err == nil && !s.closed {
			s.cond.Wait()
		}
		stop := s.err != nil || s.closed
		s.mu.Unlock()

		if stop {
			return
		}
	}
}

func (s *InputStreamResource) Type() ResourceType      { return ResourceInputStream }
func (s *InputStreamResource) Ready() bool             { return s.sig.Ready() }
func (s *InputStreamResource) Notify() <-chan struct{} { return s.sig.Notify() }

// Read returns up to length buffered bytes. An empty result with a nil
// error means no data is available yet.
func (s *InputStreamResource) Read(length uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &StreamError{Closed: true}
	}
	// Limit allocation to prevent DoS
	if length > MaxAllocationSize {
		length = MaxAllocationSize
	}
	if len(s.buf) == 0 {
		switch {
		case s.err == nil:
			return []byte{}, nil
		case errors.Is(s.err, io.EOF):
			return nil, &StreamError{Closed: true}
		default:
			return nil, &StreamError{Cause: s.err, LastOpFailed: true}
		}
	}

	n := min(int(length), len(s.buf))
	out := make([]byte, n)
	copy(out, s.buf)
	s.buf = s.buf[n:]
	if len(s.buf) == 0 && s.err == nil {
		s.sig.Reset()
		s.cond.Signal()
	}
	return out, nil
}

// Skip discards up to length buffered bytes.
func (s *InputStreamResource) Skip(length uint64) (uint64, error) {
	data, err := s.Read(length)
	return uint64(len(data)), err
}

// Drop stops the pump and closes the reader when it is an io.Closer.
func (s *InputStreamResource) Drop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.sig.Set()
	if c, ok := s.reader.(io.Closer); ok {
		_ = c.Close()
	}
}

// OutputStreamResource is a WASI output stream writing through to an
// io.Writer, or into an internal buffer when none is given. Writes complete
// synchronously, so the stream is always ready.
type OutputStreamResource struct {
	writer io.Writer
	err    error
	buf    bytes.Buffer
	mu     sync.Mutex
	closed bool
}

// NewOutputStreamResource creates a stream writing to w, or to memory when
// w is nil.
func NewOutputStreamResource(w io.Writer) *OutputStreamResource {
	return &OutputStreamResource{writer: w}
}

func (s *OutputStreamResource) Type() ResourceType { return ResourceOutputStream }
func (s *OutputStreamResource) Ready() bool        { return true }

func (s *OutputStreamResource) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// CheckWrite returns how many bytes the next Write may carry.
func (s *OutputStreamResource) CheckWrite() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return 0, err
	}
	return DefaultBufferSize, nil
}

// Write writes data, which must not exceed the last CheckWrite permit.
func (s *OutputStreamResource) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(); err != nil {
		return err
	}
	if s.writer == nil {
		s.buf.Write(data)
		return nil
	}
	if _, err := s.writer.Write(data); err != nil {
		s.err = err
		return &StreamError{Cause: err, LastOpFailed: true}
	}
	return nil
}

// Flush reports the first write failure, if any.
func (s *OutputStreamResource) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure()
}

// Bytes returns what was written to the in-memory buffer.
func (s *OutputStreamResource) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

func (s *OutputStreamResource) failure() error {
	if s.closed {
		return &StreamError{Closed: true}
	}
	if s.err != nil {
		return &StreamError{Closed: true, Cause: s.err}
	}
	return nil
}
