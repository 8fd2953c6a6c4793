package tracing

import (
	"sync/atomic"
	"time"
)

// ChunkRegistry hands out chunk numbers to all generators of a node.
//
// A generator owns its chunk exclusively until it has spent the chunk's
// counter range, so two generators never emit the same bottom bits while
// both chunks are in use. The counter is only masked, so after 4096 claims
// within one truncated second numbers repeat; this limit is accepted.
type ChunkRegistry struct {
	next atomic.Uint64
}

// NewChunkRegistry creates a registry whose first claim returns chunk 0.
func NewChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{}
}

// Next claims the next chunk number. Only distinctness of successive values
// is required, which a plain atomic add provides.
func (r *ChunkRegistry) Next() uint32 {
	return uint32(r.next.Add(1)-1) & chunkMask
}

// Claimed returns the number of chunks claimed so far.
func (r *ChunkRegistry) Claimed() uint64 {
	return r.next.Load()
}

// Generator produces trace ids. It is owned by a single goroutine and must
// not be shared; only the ChunkRegistry is shared.
type Generator struct {
	clock  Clock
	nodeNo uint16

	timestamp   TruncatedTime
	refreshedAt time.Time

	chunkNo uint32
	counter uint32
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock sets the time source.
func WithClock(c Clock) GeneratorOption {
	return func(g *Generator) {
		g.clock = c
	}
}

// NewGenerator creates a generator for the given node. The first call to
// Generate claims a chunk.
func NewGenerator(nodeNo uint16, opts ...GeneratorOption) *Generator {
	g := &Generator{
		clock:  SystemClock{},
		nodeNo: nodeNo,
		// Exhausted, so the first Generate claims a chunk.
		counter: counterMask,
	}

	for _, opt := range opts {
		opt(g)
	}

	now := g.clock.Now()
	g.timestamp = TruncatedTimeOf(now)
	g.refreshedAt = now

	return g
}

// Generate returns the next trace id.
func (g *Generator) Generate(reg *ChunkRegistry) TraceID {
	if g.counter == counterMask {
		g.chunkNo = reg.Next()
		g.counter = 0
	}

	g.counter++
	bottom := g.chunkNo<<counterBits | g.counter

	return FromLayout(Layout{
		Timestamp: g.cachedTimestamp(),
		NodeNo:    g.nodeNo,
		Bottom:    bottom,
	})
}

// cachedTimestamp re-reads the clock for the timestamp at most once a second.
func (g *Generator) cachedTimestamp() TruncatedTime {
	now := g.clock.Now()
	if now.Sub(g.refreshedAt) >= time.Second {
		g.timestamp = TruncatedTimeOf(now)
		g.refreshedAt = now
	}
	return g.timestamp
}
