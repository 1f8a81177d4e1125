package metadata

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

var stageExtensions = map[graphics.ShaderStage]string{
	graphics.ShaderStageVertex:         "vert",
	graphics.ShaderStageFragment:       "frag",
	graphics.ShaderStageGeometry:       "geom",
	graphics.ShaderStageTessControl:    "tesc",
	graphics.ShaderStageTessEvaluation: "tese",
	graphics.ShaderStageCompute:        "comp",
}

/**
 * @brief The stages of a shader program. Stage files live under
 * shaders/ and are named <program>.<stage>.<variant>.
 */
type ShaderConfig struct {
	Name   string
	Stages []graphics.ShaderStage
}

// GraphicsShaderConfig is the usual vertex and fragment program.
func GraphicsShaderConfig(name string) ShaderConfig {
	return ShaderConfig{
		Name:   name,
		Stages: []graphics.ShaderStage{graphics.ShaderStageVertex, graphics.ShaderStageFragment},
	}
}

// ShaderVariant is the file suffix of the shader code a device consumes.
func ShaderVariant(device graphics.DeviceType) string {
	switch device {
	case graphics.DeviceTypeOpenGLES2:
		return "es2.glsl"
	case graphics.DeviceTypeOpenGLES3:
		return "es3.glsl"
	case graphics.DeviceTypeOpenGLCore:
		return "glsl"
	case graphics.DeviceTypeVulkan:
		return "spv"
	}
	return ""
}

// ShaderFileName returns the asset path of one stage of a program.
func ShaderFileName(program string, stage graphics.ShaderStage, device graphics.DeviceType) string {
	return fmt.Sprintf("shaders/%s.%s.%s", program, stageExtensions[stage], ShaderVariant(device))
}

/** @brief A linked program and the config it was built from. */
type Shader struct {
	ID   uint32
	Name string
	/** @brief Incremented every time the program is rebuilt from its sources. */
	Generation uint32
	Config     ShaderConfig
	Program    graphics.Program
}

// Stage returns the stage named by a stage file extension such as "vert".
func Stage(ext string) (graphics.ShaderStage, bool) {
	for stage, e := range stageExtensions {
		if e == ext {
			return stage, true
		}
	}
	return 0, false
}
