package vks

import (
	"errors"
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// Misuse errors. These indicate bugs in the calling code, not environmental
// conditions, and are surfaced immediately at the call site.
var (
	ErrAlreadyRecording = errors.New("command buffer is already recording")
	ErrNotRecording     = errors.New("command buffer is not recording")
	ErrAlreadyMapped    = errors.New("memory is already mapped")
	ErrNotMapped        = errors.New("memory is not mapped")
)

// ErrNoSuitableMemoryType is returned when no memory type satisfies both the
// resource's type filter and the requested property flags. It signals a
// hardware/request mismatch and is not retryable.
var ErrNoSuitableMemoryType = errors.New("no suitable memory type found")

// vkErr wraps a non-success Vulkan result with the failing operation.
// Returns nil for vulkan.Success.
func vkErr(op string, res vulkan.Result) error {
	if res == vulkan.Success {
		return nil
	}
	return fmt.Errorf("%s: %w", op, vulkan.Error(res))
}
