package core

import "fmt"

// IDAllocator hands out small integer identifiers and recycles released
// ones. Identifier 0 is never handed out so it can mean "none".
type IDAllocator struct {
	owners []interface{}
}

func NewIDAllocator(capacity int) *IDAllocator {
	if capacity < 1 {
		capacity = 1
	}
	// slot 0 is reserved
	owners := make([]interface{}, 1, capacity+1)
	owners[0] = struct{}{}
	return &IDAllocator{owners: owners}
}

// Acquire returns the lowest free identifier and records its owner.
func (a *IDAllocator) Acquire(owner interface{}) uint32 {
	for i := 1; i < len(a.owners); i++ {
		// Existing free spot. Take it.
		if a.owners[i] == nil {
			a.owners[i] = owner
			return uint32(i)
		}
	}
	a.owners = append(a.owners, owner)
	return uint32(len(a.owners) - 1)
}

// Owner returns what acquired id, or nil.
func (a *IDAllocator) Owner(id uint32) interface{} {
	if id == 0 || int(id) >= len(a.owners) {
		return nil
	}
	return a.owners[id]
}

func (a *IDAllocator) Release(id uint32) error {
	if id == 0 || int(id) >= len(a.owners) {
		return fmt.Errorf("release id %d (max=%d): %w", id, len(a.owners)-1, ErrIDOutOfRange)
	}
	if a.owners[id] == nil {
		return fmt.Errorf("release id %d: %w", id, ErrIDNotAcquired)
	}
	// Just zero out the entry, making it available for use.
	a.owners[id] = nil
	return nil
}
