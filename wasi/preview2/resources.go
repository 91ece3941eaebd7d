package preview2

import (
	"fmt"
	"sync"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/poll"
	"github.com/wippyai/plugin-reactor/resource"
)

// MaxAllocationSize is the maximum size for single allocations (1 GB) to prevent DoS
const MaxAllocationSize = 1 << 30

// DefaultBufferSize is the default buffer size for streams (64 KB)
const DefaultBufferSize = 65536

// Resource is a WASI preview2 resource that can be managed by ResourceTable.
type Resource interface {
	// Type returns the resource type identifier.
	Type() ResourceType
	// Drop releases any underlying resources.
	Drop()
}

// ResourceType identifies the type of a WASI resource.
type ResourceType uint8

const (
	ResourcePollable ResourceType = iota
	ResourceInputStream
	ResourceOutputStream
	ResourceError
	ResourceTimer
	ResourceManual
	ResourceFD
)

func (t ResourceType) String() string {
	switch t {
	case ResourcePollable:
		return "pollable"
	case ResourceInputStream:
		return "input-stream"
	case ResourceOutputStream:
		return "output-stream"
	case ResourceError:
		return "error"
	case ResourceTimer:
		return "timer"
	case ResourceManual:
		return "manual"
	case ResourceFD:
		return "fd"
	default:
		return "unknown"
	}
}

// ResourceTable manages the WASI handles of one component instance.
// Pollables created by Subscribe are stored as children of their source, so
// a source cannot be dropped while a pollable still refers to it.
type ResourceTable struct {
	table *resource.Table
	// owned maps a pollable to the hidden source it was created with.
	owned map[uint32]uint32
	mu    sync.Mutex
}

// NewResourceTable creates a new resource table
func NewResourceTable(opts ...resource.Option) *ResourceTable {
	return &ResourceTable{
		table: resource.NewTable(opts...),
		owned: make(map[uint32]uint32),
	}
}

// Table exposes the underlying generic table.
func (t *ResourceTable) Table() *resource.Table {
	return t.table
}

// Add stores a resource and returns its handle.
func (t *ResourceTable) Add(r Resource) (uint32, error) {
	h, err := t.table.Insert(r)
	return uint32(h), err
}

// AddChild stores a resource owned by parent.
func (t *ResourceTable) AddChild(r Resource, parent uint32) (uint32, error) {
	h, err := t.table.InsertChild(r, resource.Handle(parent))
	return uint32(h), err
}

// Get returns the resource stored under handle.
func (t *ResourceTable) Get(handle uint32) (Resource, error) {
	return resource.Get[Resource](t.table, resource.Handle(handle))
}

// Subscribe creates a pollable for the resource under handle. The resource
// must implement poll.Subscriber.
func (t *ResourceTable) Subscribe(handle uint32) (uint32, error) {
	h, err := poll.Subscribe(t.table, resource.Handle(handle))
	return uint32(h), err
}

// SubscribeOwned stores r and returns a pollable for it. The guest only
// sees the pollable; removing it also removes r.
func (t *ResourceTable) SubscribeOwned(r Resource) (uint32, error) {
	src, err := t.Add(r)
	if err != nil {
		return 0, err
	}
	p, err := t.Subscribe(src)
	if err != nil {
		_ = t.Remove(src)
		return 0, err
	}
	t.mu.Lock()
	t.owned[p] = src
	t.mu.Unlock()
	return p, nil
}

// Pollable returns the pollable stored under handle.
func (t *ResourceTable) Pollable(handle uint32) (*poll.Pollable, error) {
	return poll.Lookup(t.table, resource.Handle(handle))
}

// Remove takes the entry out of the table and drops it. Entries that still
// own children are left in place.
func (t *ResourceTable) Remove(handle uint32) error {
	v, err := t.table.Delete(resource.Handle(handle))
	if err != nil {
		return err
	}
	if d, ok := v.(resource.Dropper); ok {
		d.Drop()
	}

	t.mu.Lock()
	src, ok := t.owned[handle]
	delete(t.owned, handle)
	t.mu.Unlock()
	if ok {
		return t.Remove(src)
	}
	return nil
}

// TypeOf reports the resource type stored under handle.
func (t *ResourceTable) TypeOf(handle uint32) (ResourceType, error) {
	v, err := t.table.Value(resource.Handle(handle))
	if err != nil {
		return 0, err
	}
	switch r := v.(type) {
	case *poll.Pollable:
		return ResourcePollable, nil
	case Resource:
		return r.Type(), nil
	default:
		return 0, errors.WrongType(errors.PhaseHost, handle, "preview2.Resource", typeName(v))
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

// Len returns the number of live handles.
func (t *ResourceTable) Len() int {
	return t.table.Len()
}

// Clear drops and removes all resources. Used during shutdown.
func (t *ResourceTable) Clear() {
	t.table.Clear()
	t.mu.Lock()
	clear(t.owned)
	t.mu.Unlock()
}

// Close clears the table and rejects further inserts.
func (t *ResourceTable) Close() error {
	err := t.table.Close()
	t.mu.Lock()
	clear(t.owned)
	t.mu.Unlock()
	return err
}

// StreamError represents a WASI stream error with error codes.
type StreamError struct {
	Cause           error  // Underlying failure, nil when closed
	Closed          bool   // Stream is closed
	LastOpFailed    bool   // Previous operation failed
	LastOpFailedErr uint32 // Handle of the error resource describing the failure
}

func (e *StreamError) Error() string {
	if e.Closed {
		return "stream closed"
	}
	if e.Cause != nil {
		return "stream error: " + e.Cause.Error()
	}
	return "stream error"
}

func (e *StreamError) Unwrap() error { return e.Cause }

// ErrorResource holds an error message that can be retrieved via ToDebugString.
type ErrorResource struct {
	msg string
}

func NewErrorResource(msg string) *ErrorResource {
	return &ErrorResource{msg: msg}
}

func (e *ErrorResource) Type() ResourceType    { return ResourceError }
func (e *ErrorResource) Drop()                 {}
func (e *ErrorResource) ToDebugString() string { return e.msg }
