package addr

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNameTaken is returned when allocating a name that is already bound.
	ErrNameTaken = errors.New("name already taken")

	// ErrNotFound is returned when releasing an unknown address.
	ErrNotFound = errors.New("address not found")
)

// Book maps addresses (and optional names) to entries of type T.
// It is safe for concurrent use.
type Book[T any] struct {
	mu sync.RWMutex

	entries    map[Addr]T
	nameToAddr map[string]Addr
	addrToName map[Addr]string

	// Counter for generating unique serial numbers
	serial uint64

	nodeNo uint16
}

// NewBook creates an address book that allocates addresses on the given node.
func NewBook[T any](nodeNo uint16) *Book[T] {
	return &Book[T]{
		entries:    make(map[Addr]T),
		nameToAddr: make(map[string]Addr),
		addrToName: make(map[Addr]string),
		nodeNo:     nodeNo,
	}
}

// NodeNo returns the node number addresses are allocated on.
func (b *Book[T]) NodeNo() uint16 {
	return b.nodeNo
}

// Reserve allocates a fresh address without binding an entry to it yet.
func (b *Book[T]) Reserve() Addr {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.serial++
	return New(b.nodeNo, b.serial)
}

// Insert binds entry to a previously reserved address. A non-empty name is
// bound as well and must be unique.
func (b *Book[T]) Insert(a Addr, name string, entry T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if name != "" {
		if _, exists := b.nameToAddr[name]; exists {
			return fmt.Errorf("%w: %q", ErrNameTaken, name)
		}
		b.nameToAddr[name] = a
		b.addrToName[a] = name
	}

	b.entries[a] = entry
	return nil
}

// Get returns the entry bound to a.
func (b *Book[T]) Get(a Addr) (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entry, exists := b.entries[a]
	return entry, exists
}

// Lookup resolves a name to an address.
func (b *Book[T]) Lookup(name string) (Addr, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, exists := b.nameToAddr[name]
	return a, exists
}

// Name returns the name bound to a, if any.
func (b *Book[T]) Name(a Addr) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.addrToName[a]
}

// Remove unbinds a and its name.
func (b *Book[T]) Remove(a Addr) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[a]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, a)
	}

	delete(b.entries, a)
	if name, ok := b.addrToName[a]; ok {
		delete(b.addrToName, a)
		delete(b.nameToAddr, name)
	}

	return nil
}

// List returns all bound addresses in ascending order.
func (b *Book[T]) List() []Addr {
	b.mu.RLock()
	defer b.mu.RUnlock()

	addrs := make([]Addr, 0, len(b.entries))
	for a := range b.entries {
		addrs = append(addrs, a)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Len returns the number of bound addresses.
func (b *Book[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries)
}
