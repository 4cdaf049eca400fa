package vks

import (
	"github.com/vulkan-go/vulkan"
)

type cmdState int

const (
	cmdStateInitial cmdState = iota
	cmdStateRecording
	cmdStateExecutable
)

// CommandBuffer tracks recording state alongside the raw handle so that
// Begin/End misuse surfaces as a Go error instead of a validation-layer
// message deep inside the driver.
type CommandBuffer struct {
	pool   *CommandPool
	handle vulkan.CommandBuffer
	state  cmdState
}

// Begin starts recording. Calling Begin while a recording is already open
// returns ErrAlreadyRecording.
func (cb *CommandBuffer) Begin(flags vulkan.CommandBufferUsageFlags) error {
	if cb.state == cmdStateRecording {
		return ErrAlreadyRecording
	}
	if res := cb.pool.device.backend.BeginCommandBuffer(cb.handle, flags); res != vulkan.Success {
		return vkErr("begin command buffer", res)
	}
	cb.state = cmdStateRecording
	return nil
}

// End finishes recording and moves the buffer to the executable state.
// Calling End without an open recording returns ErrNotRecording.
func (cb *CommandBuffer) End() error {
	if cb.state != cmdStateRecording {
		return ErrNotRecording
	}
	if res := cb.pool.device.backend.EndCommandBuffer(cb.handle); res != vulkan.Success {
		cb.state = cmdStateInitial
		return vkErr("end command buffer", res)
	}
	cb.state = cmdStateExecutable
	return nil
}

// Reset returns the buffer to its initial state for re-recording. The
// caller must guarantee the GPU is no longer executing it; the per-frame
// fence wait provides that guarantee on the draw path.
func (cb *CommandBuffer) Reset() error {
	if res := cb.pool.device.backend.ResetCommandBuffer(cb.handle); res != vulkan.Success {
		return vkErr("reset command buffer", res)
	}
	cb.state = cmdStateInitial
	return nil
}

// Recording reports whether a recording is currently open.
func (cb *CommandBuffer) Recording() bool {
	return cb.state == cmdStateRecording
}

// Handle returns the raw command-buffer handle for recording commands.
func (cb *CommandBuffer) Handle() vulkan.CommandBuffer {
	return cb.handle
}
