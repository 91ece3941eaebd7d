package io

import (
	"context"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/resource"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

type inputStream interface {
	preview2.Resource
	Read(length uint64) ([]byte, error)
	Skip(length uint64) (uint64, error)
}

type outputStream interface {
	preview2.Resource
	CheckWrite() (uint64, error)
	Write(data []byte) error
	Flush() error
}

// StreamsHost implements the non-blocking subset of wasi:io/streams.
// Blocking variants are expressed by guests as subscribe plus poll.
type StreamsHost struct {
	resources *preview2.ResourceTable
}

func NewStreamsHost(resources *preview2.ResourceTable) *StreamsHost {
	return &StreamsHost{resources: resources}
}

func (h *StreamsHost) Namespace() string {
	return "wasi:io/streams@0.2.8"
}

func (h *StreamsHost) input(self uint32) inputStream {
	s, err := resource.Get[inputStream](h.resources.Table(), resource.Handle(self))
	errors.Fail(errors.PhaseHost, err, "input-stream handle %d", self)
	return s
}

func (h *StreamsHost) output(self uint32) outputStream {
	s, err := resource.Get[outputStream](h.resources.Table(), resource.Handle(self))
	errors.Fail(errors.PhaseHost, err, "output-stream handle %d", self)
	return s
}

// streamError converts err into a stream-error. A failed operation gets an
// error resource describing the failure.
func (h *StreamsHost) streamError(self uint32, err error) *preview2.StreamError {
	var se *preview2.StreamError
	if !errors.As(err, &se) {
		se = &preview2.StreamError{Cause: err, LastOpFailed: true}
	}
	if se.Closed || !se.LastOpFailed {
		return &preview2.StreamError{Closed: true}
	}
	handle, addErr := h.resources.Add(preview2.NewErrorResource(err.Error()))
	errors.Fail(errors.PhaseHost, addErr, "error resource for stream %d", self)
	return &preview2.StreamError{Cause: se.Cause, LastOpFailed: true, LastOpFailedErr: handle}
}

func (h *StreamsHost) MethodInputStreamRead(_ context.Context, self uint32, length uint64) ([]byte, *preview2.StreamError) {
	data, err := h.input(self).Read(length)
	if err != nil {
		return nil, h.streamError(self, err)
	}
	return data, nil
}

func (h *StreamsHost) MethodInputStreamSkip(_ context.Context, self uint32, length uint64) (uint64, *preview2.StreamError) {
	n, err := h.input(self).Skip(length)
	if err != nil {
		return 0, h.streamError(self, err)
	}
	return n, nil
}

// MethodInputStreamSubscribe returns a pollable that is ready once a read
// would return data or an error.
func (h *StreamsHost) MethodInputStreamSubscribe(_ context.Context, self uint32) uint32 {
	h.input(self)
	p, err := h.resources.Subscribe(self)
	errors.Fail(errors.PhaseHost, err, "subscribe input-stream %d", self)
	return p
}

func (h *StreamsHost) MethodOutputStreamCheckWrite(_ context.Context, self uint32) (uint64, *preview2.StreamError) {
	n, err := h.output(self).CheckWrite()
	if err != nil {
		return 0, h.streamError(self, err)
	}
	return n, nil
}

func (h *StreamsHost) MethodOutputStreamWrite(_ context.Context, self uint32, contents []byte) *preview2.StreamError {
	s := h.output(self)
	permit, err := s.CheckWrite()
	if err != nil {
		return h.streamError(self, err)
	}
	if uint64(len(contents)) > permit {
		errors.ProtocolViolation(errors.PhaseHost, "write of %d bytes exceeds check-write permit %d", len(contents), permit)
	}
	if err := s.Write(contents); err != nil {
		return h.streamError(self, err)
	}
	return nil
}

func (h *StreamsHost) MethodOutputStreamFlush(_ context.Context, self uint32) *preview2.StreamError {
	if err := h.output(self).Flush(); err != nil {
		return h.streamError(self, err)
	}
	return nil
}

// MethodOutputStreamSubscribe returns a pollable that is ready once
// check-write would report room or an error.
func (h *StreamsHost) MethodOutputStreamSubscribe(_ context.Context, self uint32) uint32 {
	h.output(self)
	p, err := h.resources.Subscribe(self)
	errors.Fail(errors.PhaseHost, err, "subscribe output-stream %d", self)
	return p
}

func (h *StreamsHost) ResourceDropInputStream(_ context.Context, self uint32) {
	h.input(self)
	errors.Fail(errors.PhaseHost, h.resources.Remove(self), "drop input-stream %d", self)
}

func (h *StreamsHost) ResourceDropOutputStream(_ context.Context, self uint32) {
	h.output(self)
	errors.Fail(errors.PhaseHost, h.resources.Remove(self), "drop output-stream %d", self)
}

func (h *StreamsHost) Register() map[string]any {
	return map[string]any{
		"[method]input-stream.read":         h.MethodInputStreamRead,
		"[method]input-stream.skip":         h.MethodInputStreamSkip,
		"[method]input-stream.subscribe":    h.MethodInputStreamSubscribe,
		"[method]output-stream.check-write": h.MethodOutputStreamCheckWrite,
		"[method]output-stream.write":       h.MethodOutputStreamWrite,
		"[method]output-stream.flush":       h.MethodOutputStreamFlush,
		"[method]output-stream.subscribe":   h.MethodOutputStreamSubscribe,
		"[resource-drop]input-stream":       h.ResourceDropInputStream,
		"[resource-drop]output-stream":      h.ResourceDropOutputStream,
	}
}
