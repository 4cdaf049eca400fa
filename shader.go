package vks

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// loadShaderModule reads a SPIR-V binary from disk and wraps it in a shader
// module. The caller destroys the module once the pipeline is built.
func loadShaderModule(device *Device, path string) (vulkan.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return vulkan.ShaderModule(vulkan.NullHandle), fmt.Errorf("read shader %s: %w", path, err)
	}
	return newShaderModule(device, code)
}

func newShaderModule(device *Device, code []byte) (vulkan.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return vulkan.ShaderModule(vulkan.NullHandle), fmt.Errorf("invalid SPIR-V length %d", len(code))
	}
	createInfo := vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    bytesToUint32(code),
	}
	var module vulkan.ShaderModule
	if res := vulkan.CreateShaderModule(device.handle, &createInfo, nil, &module); res != vulkan.Success {
		return vulkan.ShaderModule(vulkan.NullHandle), vkErr("create shader module", res)
	}
	return module, nil
}

func bytesToUint32(data []byte) []uint32 {
	n := len(data) / 4
	return (*[1 << 28]uint32)(unsafe.Pointer(&data[0]))[:n:n]
}
