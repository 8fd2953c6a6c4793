// Package node holds the number of the running node. The number is supplied
// externally (configuration) and must be unique across the observable fleet.
package node

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// NodeNo identifies a node. It is embedded into addresses and trace ids.
type NodeNo = uint16

// ErrNodeNoAlreadySet is returned by Set when a different number was already set.
var ErrNodeNoAlreadySet = errors.New("node number already set")

var (
	mu    sync.Mutex
	isSet bool
	no    atomic.Uint32
)

// Set assigns the node number. It may be called once; repeating it with the
// same value is a no-op.
func Set(n NodeNo) error {
	mu.Lock()
	defer mu.Unlock()

	if isSet {
		if NodeNo(no.Load()) == n {
			return nil
		}
		return fmt.Errorf("%w: have %d, got %d", ErrNodeNoAlreadySet, no.Load(), n)
	}

	no.Store(uint32(n))
	isSet = true
	return nil
}

// No returns the node number, or 0 if it has not been set.
func No() NodeNo {
	return NodeNo(no.Load())
}

// reset is used by tests.
func reset() {
	mu.Lock()
	defer mu.Unlock()

	isSet = false
	no.Store(0)
}
