package vks

import (
	"github.com/vulkan-go/vulkan"
)

// Queue wraps one device queue: its handle, its family index, and what it
// was selected for. Queues are owned by the Device; several Queue values may
// alias the same underlying family.
type Queue struct {
	handle vulkan.Queue
	family uint32
}

// Handle returns the raw queue handle.
func (q *Queue) Handle() vulkan.Queue {
	return q.handle
}

// FamilyIndex returns the queue-family index this queue was created from.
func (q *Queue) FamilyIndex() uint32 {
	return q.family
}
