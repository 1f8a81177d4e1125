//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test with the race detector. The window and GL
// bindings are cgo packages.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}

// Runs the tests that need no window or GPU.
func (Test) Headless() error {
	_, err := executeCmd("go", withArgs("test",
		"./engine/assets/...",
		"./engine/config/...",
		"./engine/containers/...",
		"./engine/core/...",
		"./engine/math/...",
		"./engine/renderer/...",
		"./engine/scene/...",
		"./engine/systems/...",
	), withStream())
	return err
}
