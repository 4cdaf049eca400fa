package vks

import (
	"errors"
	"testing"
)

func newTestCommandBuffer(fb *fakeBackend) *CommandBuffer {
	device := newFakeDevice(fb)
	pool := &CommandPool{device: device, queue: device.Graphics}
	return &CommandBuffer{pool: pool, handle: fakeCommandBufferHandle()}
}

func TestCommandBufferBeginWhileRecording(t *testing.T) {
	cb := newTestCommandBuffer(newFakeBackend())

	if err := cb.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := cb.Begin(0); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("err = %v, want ErrAlreadyRecording", err)
	}
}

func TestCommandBufferEndWithoutBegin(t *testing.T) {
	cb := newTestCommandBuffer(newFakeBackend())

	if err := cb.End(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
}

func TestCommandBufferDoubleEnd(t *testing.T) {
	cb := newTestCommandBuffer(newFakeBackend())

	if err := cb.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
}

func TestCommandBufferResetAllowsRerecording(t *testing.T) {
	fb := newFakeBackend()
	cb := newTestCommandBuffer(fb)

	if err := cb.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if err := cb.Reset(); err != nil {
		t.Fatal(err)
	}
	if cb.Recording() {
		t.Error("buffer should not be recording after reset")
	}
	if err := cb.Begin(0); err != nil {
		t.Fatal(err)
	}
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}

	if fb.begins != 2 || fb.ends != 2 || fb.resets != 1 {
		t.Errorf("begin/end/reset = %d/%d/%d, want 2/2/1", fb.begins, fb.ends, fb.resets)
	}
}
