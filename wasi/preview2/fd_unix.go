//go:build unix

package preview2

import "github.com/wippyai/plugin-reactor/poll"

// FDResource exposes host file descriptor readiness as a WASI resource.
type FDResource struct {
	*poll.FD
}

// NewFDReadResource watches fd for readability.
func NewFDReadResource(fd int) *FDResource {
	return &FDResource{FD: poll.NewFDReadable(fd)}
}

// NewFDWriteResource watches fd for writability.
func NewFDWriteResource(fd int) *FDResource {
	return &FDResource{FD: poll.NewFDWritable(fd)}
}

func (f *FDResource) Type() ResourceType { return ResourceFD }
