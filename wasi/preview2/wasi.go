package preview2

import (
	"io"

	"github.com/wippyai/plugin-reactor/resource"
)

// WASI holds the resource table and standard streams of one component
// instance. Use builder methods to set up.
type WASI struct {
	resources *ResourceTable
	stdin     *InputStreamResource
	stdout    *OutputStreamResource
	stderr    *OutputStreamResource
	handles   [3]uint32
}

// New creates a new WASI preview2 instance
func New(opts ...resource.Option) *WASI {
	return &WASI{
		resources: NewResourceTable(opts...),
		stdin:     NewInputStreamResource(nil),
		stdout:    NewOutputStreamResource(nil),
		stderr:    NewOutputStreamResource(nil),
	}
}

// WithStdin sets stdin data
func (w *WASI) WithStdin(data []byte) *WASI {
	w.stdin = NewInputStreamResource(data)
	return w
}

// WithStdinReader feeds stdin from r.
func (w *WASI) WithStdinReader(r io.Reader) *WASI {
	w.stdin = NewInputStreamReader(r)
	return w
}

// WithStdout sends stdout to wr instead of an in-memory buffer.
func (w *WASI) WithStdout(wr io.Writer) *WASI {
	w.stdout = NewOutputStreamResource(wr)
	return w
}

// WithStderr sends stderr to wr instead of an in-memory buffer.
func (w *WASI) WithStderr(wr io.Writer) *WASI {
	w.stderr = NewOutputStreamResource(wr)
	return w
}

// Stdout returns stdout contents
func (w *WASI) Stdout() []byte {
	return w.stdout.Bytes()
}

// Stderr returns stderr contents
func (w *WASI) Stderr() []byte {
	return w.stderr.Bytes()
}

// Resources returns the resource table
func (w *WASI) Resources() *ResourceTable {
	return w.resources
}

// StdinHandle returns the table handle of stdin, adding it on first use.
func (w *WASI) StdinHandle() (uint32, error) {
	return w.handle(0, w.stdin)
}

// StdoutHandle returns the table handle of stdout, adding it on first use.
func (w *WASI) StdoutHandle() (uint32, error) {
	return w.handle(1, w.stdout)
}

// StderrHandle returns the table handle of stderr, adding it on first use.
func (w *WASI) StderrHandle() (uint32, error) {
	return w.handle(2, w.stderr)
}

func (w *WASI) handle(i int, r Resource) (uint32, error) {
	if h := w.handles[i]; h != 0 && w.resources.Table().Contains(resource.Handle(h)) {
		return h, nil
	}
	h, err := w.resources.Add(r)
	if err != nil {
		return 0, err
	}
	w.handles[i] = h
	return h, nil
}

// Close drops all resources and rejects further handles.
func (w *WASI) Close() error {
	err := w.resources.Close()
	w.stdin.Drop()
	return err
}
