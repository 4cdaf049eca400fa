package vks

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// Instance is the process-wide connection to the Vulkan API. It is created
// once at startup and destroyed at shutdown, after every dependent object.
type Instance struct {
	handle        vulkan.Instance
	debugCallback vulkan.DebugReportCallback
	validation    bool
}

// NewInstance creates the Vulkan instance. requiredExtensions are the
// platform surface extensions reported by the windowing collaborator; the
// debug-report extension and the standard validation layer are added when
// validation is enabled. A missing required extension or layer is an
// unrecoverable configuration error, never a condition to work around.
func NewInstance(cfg *Config, requiredExtensions []string) (*Instance, error) {
	if cfg.EnableValidation && !instanceLayersSupported(validationLayers) {
		return nil, fmt.Errorf("requested validation layers not available")
	}

	extensions := append([]string(nil), requiredExtensions...)
	if cfg.EnableValidation {
		extensions = append(extensions, "VK_EXT_debug_report")
	}
	if missing := missingInstanceExtensions(extensions); len(missing) > 0 {
		return nil, fmt.Errorf("required instance extensions not supported: %v", missing)
	}

	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   cfg.AppName + "\x00",
		ApplicationVersion: vulkan.MakeVersion(0, 1, 0),
		PEngineName:        "vks\x00",
		EngineVersion:      vulkan.MakeVersion(0, 1, 0),
		ApiVersion:         vulkan.MakeVersion(1, 1, 0),
	}

	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}
	if cfg.EnableValidation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = safeStrings(validationLayers)
	}

	inst := &Instance{validation: cfg.EnableValidation}
	if res := vulkan.CreateInstance(&createInfo, nil, &inst.handle); res != vulkan.Success {
		return nil, vkErr("create instance", res)
	}
	if err := vulkan.InitInstance(inst.handle); err != nil {
		return nil, fmt.Errorf("init instance: %w", err)
	}

	if cfg.EnableValidation {
		if err := inst.setupDebugCallback(); err != nil {
			vulkan.DestroyInstance(inst.handle, nil)
			return nil, err
		}
	}
	return inst, nil
}

// Handle returns the raw instance handle.
func (in *Instance) Handle() vulkan.Instance {
	return in.handle
}

// Destroy removes the debug callback (if any), then the instance. All
// children must have been torn down first.
func (in *Instance) Destroy() {
	if in.debugCallback != vulkan.DebugReportCallback(vulkan.NullHandle) {
		vulkan.DestroyDebugReportCallback(in.handle, in.debugCallback, nil)
		in.debugCallback = vulkan.DebugReportCallback(vulkan.NullHandle)
	}
	if in.handle != vulkan.Instance(vulkan.NullHandle) {
		vulkan.DestroyInstance(in.handle, nil)
		in.handle = vulkan.Instance(vulkan.NullHandle)
	}
}

func (in *Instance) setupDebugCallback() error {
	createInfo := vulkan.DebugReportCallbackCreateInfo{
		SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vulkan.DebugReportFlags(
			vulkan.DebugReportErrorBit |
				vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType, object uint64, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vulkan.Bool32 {
			log.Printf("[VK][%s][0x%x] %s (code=%d)", layerPrefix, flags, message, messageCode)
			return vulkan.False
		},
	}
	if res := vulkan.CreateDebugReportCallback(in.handle, &createInfo, nil, &in.debugCallback); res != vulkan.Success {
		return vkErr("create debug callback", res)
	}
	return nil
}

func instanceLayersSupported(layers []string) bool {
	var count uint32
	if vulkan.EnumerateInstanceLayerProperties(&count, nil) != vulkan.Success {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if vulkan.EnumerateInstanceLayerProperties(&count, props) != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range layers {
		if !supported[l] {
			return false
		}
	}
	return true
}

func missingInstanceExtensions(required []string) []string {
	var count uint32
	if vulkan.EnumerateInstanceExtensionProperties("", &count, nil) != vulkan.Success {
		return required
	}
	props := make([]vulkan.ExtensionProperties, count)
	if vulkan.EnumerateInstanceExtensionProperties("", &count, props) != vulkan.Success {
		return required
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].ExtensionName[:])] = true
	}
	var missing []string
	for _, ext := range required {
		if !supported[trimNul(ext)] {
			missing = append(missing, ext)
		}
	}
	return missing
}

// safeStrings NUL-terminates strings for the C side.
func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		if len(s) == 0 || s[len(s)-1] != '\x00' {
			s += "\x00"
		}
		out[i] = s
	}
	return out
}

func trimNul(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\x00' {
		s = s[:len(s)-1]
	}
	return s
}
