// Package id generates time-ordered, process-monotonic identifiers for
// queue messages.
//
// Identifiers are 128 bits: a 48-bit millisecond timestamp, a 42-bit
// monotonic counter, and a 32-bit random tail. The timestamp occupies the
// most significant bits, so the canonical hex string form sorts
// lexicographically in creation order — this is what lets the dequeue path
// break created_at ties on id alone.
//
// The counter is the one piece of process-wide mutable state this package
// introduces; everything else in the surrounding engine lives in the
// database.
package id

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const counterMask = (uint64(1) << 42) - 1

var gen generator

type generator struct {
	mu      sync.Mutex
	lastMs  uint64
	counter uint64
}

// New returns a new identifier, guaranteed to be lexicographically greater
// than every identifier previously returned by New in this process.
func New() string {
	return gen.next().String()
}

func (g *generator) next() uuid.UUID {
	g.mu.Lock()
	now := uint64(time.Now().UnixMilli()) & ((uint64(1) << 48) - 1)
	if now <= g.lastMs {
		// Clock did not advance (or went backwards): stay on the same
		// millisecond bucket and bump the counter so ordering still holds.
		now = g.lastMs
		g.counter = (g.counter + 1) & counterMask
	} else {
		g.lastMs = now
		g.counter = 0
	}
	ms, counter := now, g.counter
	g.mu.Unlock()

	var tail [4]byte
	_, _ = rand.Read(tail[:])

	// 48-bit timestamp, then the 42-bit counter left-justified into its own
	// 48-bit field (low 6 bits always zero), then the 32-bit random tail:
	// 48 + 48 + 32 = 128 bits exactly, timestamp-major so the hex string
	// sorts the same way the numeric value does.
	var b [16]byte
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)

	counterField := counter << 6
	b[6] = byte(counterField >> 40)
	b[7] = byte(counterField >> 32)
	b[8] = byte(counterField >> 24)
	b[9] = byte(counterField >> 16)
	b[10] = byte(counterField >> 8)
	b[11] = byte(counterField)

	copy(b[12:16], tail[:])

	u, err := uuid.FromBytes(b[:])
	if err != nil {
		// uuid.FromBytes only fails on wrong slice length; b is always 16.
		panic(fmt.Sprintf("id: unreachable uuid construction failure: %v", err))
	}
	return u
}

// Valid reports whether s parses as an identifier produced by New.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
