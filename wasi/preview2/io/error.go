package io

import (
	"context"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/resource"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

// ErrorHost implements wasi:io/error.
type ErrorHost struct {
	resources *preview2.ResourceTable
}

func NewErrorHost(resources *preview2.ResourceTable) *ErrorHost {
	return &ErrorHost{resources: resources}
}

func (h *ErrorHost) Namespace() string {
	return "wasi:io/error@0.2.8"
}

func (h *ErrorHost) get(self uint32) *preview2.ErrorResource {
	e, err := resource.Get[*preview2.ErrorResource](h.resources.Table(), resource.Handle(self))
	errors.Fail(errors.PhaseHost, err, "error handle %d", self)
	return e
}

func (h *ErrorHost) MethodErrorToDebugString(_ context.Context, self uint32) string {
	return h.get(self).ToDebugString()
}

func (h *ErrorHost) ResourceDropError(_ context.Context, self uint32) {
	h.get(self)
	errors.Fail(errors.PhaseHost, h.resources.Remove(self), "drop error %d", self)
}

func (h *ErrorHost) Register() map[string]any {
	return map[string]any{
		"[method]error.to-debug-string": h.MethodErrorToDebugString,
		"[resource-drop]error":          h.ResourceDropError,
	}
}
