package graphics

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedDevice      = errors.New("unsupported device")
	ErrUnsupportedFormat      = errors.New("unsupported format")
	ErrUnsupportedDimension   = errors.New("unsupported texture dimension")
	ErrUnsupportedShaderStage = errors.New("unsupported shader stage")
	ErrUnsupportedFeature     = errors.New("unsupported feature")
	ErrInvalidDesc            = errors.New("invalid description")
	ErrInvalidSemantic        = errors.New("invalid vertex semantic")
	ErrAlreadySetup           = errors.New("resource already set up")
	ErrNotRecording           = errors.New("context is not recording")
	ErrAlreadyRecording       = errors.New("context is already recording")
	ErrNoPipeline             = errors.New("no pipeline bound")
	ErrNoVertexBuffer         = errors.New("no vertex buffer bound")
	ErrNoIndexBuffer          = errors.New("no index buffer bound")
	ErrUnknownParam           = errors.New("unknown shader parameter")
	ErrParamType              = errors.New("shader parameter type mismatch")
	ErrWrongDevice            = errors.New("resource belongs to another device")
	ErrShaderCompile          = errors.New("shader compilation failed")
	ErrIncomplete             = errors.New("framebuffer incomplete")
	ErrNative                 = errors.New("native api error")
)

func unsupported(sentinel error, what string) error {
	return fmt.Errorf("%w: %s", sentinel, what)
}

func invalid(what string) error {
	return fmt.Errorf("%w: %s", ErrInvalidDesc, what)
}
