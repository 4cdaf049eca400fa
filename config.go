package vks

import "os"

// Config carries everything the renderer needs to come up. It is built once
// at startup and passed explicitly into construction; there is no ambient
// global state.
type Config struct {
	AppName          string
	EnableValidation bool

	// Asset paths, relative to the working directory.
	VertexShaderPath   string
	FragmentShaderPath string
	ModelPath          string
	MaterialPath       string
	TexturePath        string

	// MaxSampleCount caps the MSAA sample count. Zero means "use the highest
	// count the device supports for both color and depth".
	MaxSampleCount int
}

// DefaultConfig returns the viewer defaults. Validation defaults to on and
// can be disabled with VK_VALIDATION=0.
func DefaultConfig() Config {
	return Config{
		AppName:            "vks viewer",
		EnableValidation:   validationFromEnv(),
		VertexShaderPath:   "shaders/vert.spv",
		FragmentShaderPath: "shaders/frag.spv",
		ModelPath:          "assets/model.obj",
		MaterialPath:       "assets/model.mtl",
		TexturePath:        "assets/texture.png",
	}
}

func validationFromEnv() bool {
	switch os.Getenv("VK_VALIDATION") {
	case "0", "false", "False", "FALSE":
		return false
	default:
		return true
	}
}
