//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the Vulkan GLSL sources in assets/shaders to SPIR-V.
// basic.vert.vk.glsl becomes basic.vert.spv.
func (Build) Shaders() error {
	sources, err := filepath.Glob(filepath.Join("assets", "shaders", "*.vk.glsl"))
	if err != nil {
		return err
	}
	for _, src := range sources {
		base := strings.TrimSuffix(src, ".vk.glsl")
		stage := strings.TrimPrefix(filepath.Ext(base), ".")
		if stage == "" {
			return fmt.Errorf("shader %s has no stage in its name", src)
		}
		if _, err := executeCmd("glslc", withArgs("-fshader-stage="+stage, src, "-o", base+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the testbed binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "prism"), "."), withStream())
	return err
}
