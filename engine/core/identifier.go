package core

import "fmt"

// Identifiers hands out small integer ids, reusing released slots before growing.
// The zero value is ready to use. Not safe for concurrent use.
type Identifiers struct {
	owners []interface{}
}

func (ids *Identifiers) Acquire(owner interface{}) uint32 {
	length := uint32(len(ids.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if ids.owners[i] == nil {
			ids.owners[i] = owner
			return i
		}
	}
	// No free slot, the new id is the next index.
	ids.owners = append(ids.owners, owner)
	return length
}

func (ids *Identifiers) Release(id uint32) error {
	length := uint32(len(ids.owners))
	if id >= length || ids.owners[id] == nil {
		return fmt.Errorf("release id %d (max=%d): %w", id, length, ErrInvalidID)
	}
	// Just zero out the entry, making it available for use.
	ids.owners[id] = nil
	return nil
}

// Owner returns whatever was registered with id, or nil.
func (ids *Identifiers) Owner(id uint32) interface{} {
	if id >= uint32(len(ids.owners)) {
		return nil
	}
	return ids.owners[id]
}
