package registry

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key is the stable numeric identifier of a counter, derived from its name.
type Key uint64

// KeyOf returns the xxHash64 key for name.
func KeyOf(name string) Key {
	return Key(xxhash.Sum64String(name))
}

// ValidateName reports whether name can address a counter. A name is any
// non-empty string without a '/', which is exactly what one segment of a
// request path can carry. Whitespace is allowed.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name must not contain '/'", ErrInvalidName)
	}
	return nil
}

// NameTable interns counter names behind their Key. It owns the only copy of
// each name string so the hot counter map can stay keyed by integers.
//
// NameTable is not safe for concurrent use; Store guards it with its own lock.
type NameTable struct {
	names map[Key]string
}

// NewNameTable creates an empty name table.
func NewNameTable() *NameTable {
	return &NameTable{names: make(map[Key]string)}
}

// Put stores name under its key and returns the key. Putting the same name
// twice is a no-op. If the key is already held by a different name, Put
// returns ErrKeyCollision and leaves the table unchanged.
func (t *NameTable) Put(name string) (Key, error) {
	key := KeyOf(name)
	if existing, ok := t.names[key]; ok {
		if existing != name {
			return key, fmt.Errorf("%w: %q collides with %q", ErrKeyCollision, name, existing)
		}
		return key, nil
	}
	t.names[key] = name
	return key, nil
}

// Lookup returns the name stored under key.
func (t *NameTable) Lookup(key Key) (string, bool) {
	name, ok := t.names[key]
	return name, ok
}

// Remove deletes the entry for key, if any.
func (t *NameTable) Remove(key Key) {
	delete(t.names, key)
}

// Len returns the number of interned names.
func (t *NameTable) Len() int {
	return len(t.names)
}

// resolve returns the key for name only if the table maps that key back to
// exactly this name.
func (t *NameTable) resolve(name string) (Key, bool) {
	key := KeyOf(name)
	existing, ok := t.names[key]
	if !ok || existing != name {
		return key, false
	}
	return key, true
}
