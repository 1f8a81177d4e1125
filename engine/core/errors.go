package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrIDOutOfRange     = errors.New("identifier out of range")
	ErrIDNotAcquired    = errors.New("identifier was never acquired")
)
