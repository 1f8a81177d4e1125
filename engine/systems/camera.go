package systems

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"golang.org/x/exp/slices"
)

var ErrTooManyCameras = errors.New("camera limit reached")

type CameraSystem struct {
	config  CameraSystemConfig
	lookup  map[string]*components.CameraLookup
	ids     *core.IDAllocator
	ordered []*components.Camera
	// A default, non-registered camera that always exists as a fallback.
	defaultCamera *components.Camera
}

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/**
	 * @brief NOTE: The maximum number of cameras that can be managed by
	 * the system.
	 */
	MaxCameraCount uint16
}

func NewCameraSystem(config CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &CameraSystem{
		config:        config,
		lookup:        make(map[string]*components.CameraLookup, config.MaxCameraCount),
		ids:           core.NewIDAllocator(int(config.MaxCameraCount)),
		defaultCamera: components.NewCamera(components.DefaultCameraName),
	}, nil
}

/**
 * @brief Shuts down the camera system.
 */
func (cs *CameraSystem) Shutdown() error {
	for name, l := range cs.lookup {
		l.Camera.Reset()
		delete(cs.lookup, name)
	}
	cs.ordered = nil
	cs.defaultCamera.Reset()
	return nil
}

/**
 * @brief Acquires a pointer to a camera by name.
 * If one is not found, a new one is created and retuned.
 * Internal reference counter is incremented.
 *
 * @param name The name of the camera to acquire.
 * @return A pointer to a camera if successful; an error otherwise.
 */
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DefaultCameraName {
		return cs.defaultCamera, nil
	}
	l, ok := cs.lookup[name]
	if !ok {
		if len(cs.lookup) >= int(cs.config.MaxCameraCount) {
			err := fmt.Errorf("%w: adjust camera system config to allow more than %d", ErrTooManyCameras, cs.config.MaxCameraCount)
			core.LogError(err.Error())
			return nil, err
		}
		// Create/register the new camera.
		core.LogDebug("Creating new camera named '%s'...", name)
		l = &components.CameraLookup{Camera: components.NewCamera(name)}
		l.ID = uint16(cs.ids.Acquire(l))
		cs.lookup[name] = l
		cs.ordered = nil
	}
	l.ReferenceCount++
	return l.Camera, nil
}

/**
 * @brief Releases a camera with the given name. Internal reference
 * counter is decremented. If this reaches 0, the camera is reset,
 * and the name is usable by a new camera.
 *
 * @param name The name of the camera to release.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DefaultCameraName {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	l, ok := cs.lookup[name]
	if !ok {
		core.LogWarn("CameraSystem.Release failed lookup of '%s'. Nothing was done.", name)
		return
	}
	l.ReferenceCount--
	if l.ReferenceCount < 1 {
		l.Camera.Reset()
		if err := cs.ids.Release(uint32(l.ID)); err != nil {
			core.LogWarn(err.Error())
		}
		delete(cs.lookup, name)
		cs.ordered = nil
	}
}

/**
 * @brief Gets a pointer to the default camera.
 *
 * @return A pointer to the default camera.
 */
func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.defaultCamera
}

// Cameras returns the default camera and every registered camera sorted by
// render order, then by name. Cameras render in this order.
func (cs *CameraSystem) Cameras() []*components.Camera {
	if cs.ordered != nil {
		// orders may have changed since the last call
		cs.sort()
		return cs.ordered
	}
	cs.ordered = make([]*components.Camera, 0, len(cs.lookup)+1)
	cs.ordered = append(cs.ordered, cs.defaultCamera)
	for _, l := range cs.lookup {
		cs.ordered = append(cs.ordered, l.Camera)
	}
	cs.sort()
	return cs.ordered
}

func (cs *CameraSystem) sort() {
	slices.SortStableFunc(cs.ordered, func(a, b *components.Camera) int {
		if c := cmp.Compare(a.Order(), b.Order()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
}
