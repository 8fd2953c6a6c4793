// Package tracing produces the 64-bit trace ids that tag causally related
// message flows.
//
// A trace id is packed as
//
//	1  bit  zero
//	25 bits timestamp in seconds (truncated)
//	16 bits node number
//	12 bits chunk number
//	10 bits counter
//
// The layout is a stable wire contract: consumers decode it exactly as packed.
package tracing

import (
	"fmt"
	"strconv"
	"time"
)

const (
	timestampBits = 25
	nodeNoBits    = 16
	chunkBits     = 12
	counterBits   = 10
	bottomBits    = chunkBits + counterBits

	timestampShift = nodeNoBits + bottomBits
	nodeNoShift    = bottomBits

	timestampMask = 1<<timestampBits - 1
	chunkMask     = 1<<chunkBits - 1
	counterMask   = 1<<counterBits - 1
	bottomMask    = 1<<bottomBits - 1

	reservedBit = uint64(1) << 63
)

// TraceID is a non-zero identifier of a message flow.
type TraceID uint64

// Layout is the unpacked form of a TraceID.
type Layout struct {
	Timestamp TruncatedTime
	NodeNo    uint16
	// Bottom holds the chunk number in its upper 12 bits and the counter in
	// its lower 10 bits.
	Bottom uint32
}

// ChunkNo returns the chunk part of Bottom.
func (l Layout) ChunkNo() uint32 {
	return l.Bottom >> counterBits & chunkMask
}

// Counter returns the counter part of Bottom.
func (l Layout) Counter() uint32 {
	return l.Bottom & counterMask
}

// FromLayout packs l into a TraceID.
func FromLayout(l Layout) TraceID {
	return TraceID(uint64(l.Timestamp&timestampMask)<<timestampShift |
		uint64(l.NodeNo)<<nodeNoShift |
		uint64(l.Bottom&bottomMask))
}

// TryFrom validates a raw value received from outside the process.
func TryFrom(raw uint64) (TraceID, error) {
	if raw == 0 {
		return 0, ErrZeroTraceID
	}
	if raw&reservedBit != 0 {
		return 0, fmt.Errorf("%w: reserved bit is set in %#x", ErrInvalidTraceID, raw)
	}
	return TraceID(raw), nil
}

// ParseTraceID parses a decimal or 0x-prefixed hexadecimal trace id.
func ParseTraceID(s string) (TraceID, error) {
	raw, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTraceID, err)
	}
	return TryFrom(raw)
}

// Layout unpacks the trace id.
func (id TraceID) Layout() Layout {
	raw := uint64(id)
	return Layout{
		Timestamp: TruncatedTime(raw >> timestampShift & timestampMask),
		NodeNo:    uint16(raw >> nodeNoShift),
		Bottom:    uint32(raw & bottomMask),
	}
}

// IsZero reports whether the trace id is unset.
func (id TraceID) IsZero() bool {
	return id == 0
}

// String returns the decimal representation.
func (id TraceID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MarshalText implements encoding.TextMarshaler.
func (id TraceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TraceID) UnmarshalText(text []byte) error {
	parsed, err := ParseTraceID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// TruncatedTime is a unix timestamp in seconds with only the lowest 25 bits
// kept. It wraps roughly every 388 days.
type TruncatedTime uint32

// TruncatedTimeOf truncates t to the trace id timestamp field.
func TruncatedTimeOf(t time.Time) TruncatedTime {
	return TruncatedTime(uint64(t.Unix()) & timestampMask)
}

// Time reconstructs the latest absolute time not after now whose truncated
// form equals tt.
func (tt TruncatedTime) Time(now time.Time) time.Time {
	secs := now.Unix()
	abs := secs&^timestampMask | int64(tt)
	if abs > secs {
		abs -= 1 << timestampBits
	}
	return time.Unix(abs, 0)
}
