// Package addr defines actor addresses and the address book that maps them
// to live actors.
package addr

import "fmt"

// Addr identifies one actor. The node number lives in the high 16 bits and
// a per-node serial number in the low 48 bits.
type Addr uint64

// Null is the zero address. No actor is ever allocated at Null.
const Null Addr = 0

const (
	serialBits = 48
	serialMask = 1<<serialBits - 1
)

// New composes an address from a node number and a serial number.
func New(nodeNo uint16, serial uint64) Addr {
	return Addr(uint64(nodeNo)<<serialBits | serial&serialMask)
}

// NodeNo returns the node number encoded in the address.
func (a Addr) NodeNo() uint16 {
	return uint16(a >> serialBits)
}

// Serial returns the per-node part of the address.
func (a Addr) Serial() uint64 {
	return uint64(a) & serialMask
}

// IsNull reports whether a is the null address.
func (a Addr) IsNull() bool {
	return a == Null
}

// String returns a string representation of the address.
func (a Addr) String() string {
	if a.IsNull() {
		return "null"
	}
	return fmt.Sprintf(":%04x:%08x", a.NodeNo(), a.Serial())
}
