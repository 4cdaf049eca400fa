package vks

import (
	"testing"

	"github.com/vulkan-go/vulkan"
)

const (
	flagGraphics = vulkan.QueueFlags(vulkan.QueueGraphicsBit)
	flagCompute  = vulkan.QueueFlags(vulkan.QueueComputeBit)
	flagTransfer = vulkan.QueueFlags(vulkan.QueueTransferBit)
)

func families(flags ...vulkan.QueueFlags) []QueueFamily {
	out := make([]QueueFamily, len(flags))
	for i, f := range flags {
		out[i] = QueueFamily{Index: uint32(i), Flags: f}
	}
	return out
}

func TestSelectQueueFamiliesDedicated(t *testing.T) {
	fams := families(
		flagGraphics|flagCompute|flagTransfer,
		flagCompute|flagTransfer,
		flagTransfer,
	)

	g, c, tr := selectQueueFamilies(fams)
	if g != 0 || c != 1 || tr != 2 {
		t.Errorf("got (%d,%d,%d), want dedicated (0,1,2)", g, c, tr)
	}
}

func TestSelectQueueFamiliesSharedFallback(t *testing.T) {
	fams := families(flagGraphics | flagCompute | flagTransfer)

	g, c, tr := selectQueueFamilies(fams)
	if g != 0 || c != 0 || tr != 0 {
		t.Errorf("got (%d,%d,%d), want all shared (0,0,0)", g, c, tr)
	}
}

func TestSelectQueueFamiliesTransferFallsToCompute(t *testing.T) {
	// A dedicated compute family but no transfer-only family: transfer
	// follows compute's choice.
	fams := families(
		flagGraphics|flagCompute|flagTransfer,
		flagCompute|flagTransfer,
	)

	g, c, tr := selectQueueFamilies(fams)
	if g != 0 || c != 1 || tr != 1 {
		t.Errorf("got (%d,%d,%d), want (0,1,1)", g, c, tr)
	}
}

func TestSelectQueueFamiliesNoGraphics(t *testing.T) {
	fams := families(flagCompute|flagTransfer, flagTransfer)

	g, c, tr := selectQueueFamilies(fams)
	if g != -1 || c != -1 || tr != -1 {
		t.Errorf("got (%d,%d,%d), want (-1,-1,-1) without graphics", g, c, tr)
	}
}

func TestSelectPresentFamilyOrder(t *testing.T) {
	fams := families(flagGraphics, flagCompute, flagTransfer)
	fams[1].CanPresent = true
	fams[2].CanPresent = true

	// Graphics cannot present, so the walk lands on compute first.
	family, ok := selectPresentFamily(fams, 0, 1, 2)
	if !ok || family != 1 {
		t.Errorf("got (%d,%v), want (1,true)", family, ok)
	}
}

func TestSelectPresentFamilyPrefersGraphics(t *testing.T) {
	fams := families(flagGraphics, flagCompute)
	fams[0].CanPresent = true
	fams[1].CanPresent = true

	family, ok := selectPresentFamily(fams, 0, 1)
	if !ok || family != 0 {
		t.Errorf("got (%d,%v), want (0,true)", family, ok)
	}
}

func TestSelectPresentFamilyNone(t *testing.T) {
	fams := families(flagGraphics, flagCompute)

	if _, ok := selectPresentFamily(fams, 0, 1); ok {
		t.Error("expected no present-capable family")
	}
}
