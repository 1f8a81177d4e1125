// Package glnative binds opengl.Functions to the go-gl cgo bindings. Core
// wraps the desktop OpenGL 4.1 core profile, ES wraps OpenGL ES 3.1 (which
// also serves OpenGL ES 2 and 3.0 contexts exposing the 3.x entry points).
package glnative

import (
	"strings"
	"unsafe"
)

// infoLogMax bounds shader and program info logs.
const infoLogMax = 64 * 1024

// uniformNameMax bounds active uniform names.
const uniformNameMax = 256

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func cstr(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func trimLog(b []byte, n int32) string {
	if n <= 0 || int(n) > len(b) {
		return ""
	}
	return strings.TrimRight(string(b[:n]), "\x00")
}
