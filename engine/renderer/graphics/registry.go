package graphics

import (
	"fmt"
	"slices"
	"sync"
)

// Factory returns an uninitialized device; NewDevice calls Setup on it.
type Factory func() Device

var (
	registryMu sync.RWMutex
	registry   = make(map[DeviceType]Factory)
)

// Register makes a backend available to NewDevice. Registering the same
// type twice replaces the previous factory.
func Register(t DeviceType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		delete(registry, t)
		return
	}
	registry[t] = f
}

// Registered lists the device types that have a factory.
func Registered() []DeviceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]DeviceType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// NewDevice creates and sets up a device of desc.Type. On failure no device
// is returned and nothing native is left allocated.
func NewDevice(desc DeviceDesc) (Device, error) {
	registryMu.RLock()
	f, ok := registry[desc.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no backend registered for %s", ErrUnsupportedDevice, desc.Type)
	}
	device := f()
	if err := device.Setup(desc); err != nil {
		return nil, err
	}
	return device, nil
}
