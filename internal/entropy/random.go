// Package entropy provides the randomness source for stochastic game events.
// Production code uses crypto/rand; tests and replays inject a seeded source
// so campaign noise, turnout draws, and AI variance are reproducible.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// Source yields uniform random floats in [0, 1). The seeded source is
// locked so concurrent readers don't race the underlying generator.
type Source interface {
	Float() float64
}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source {
	return cryptoSource{}
}

type cryptoSource struct{}

func (cryptoSource) Float() float64 {
	return cryptoRandFloat()
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Seeded returns a deterministic Source for tests and headless simulations.
func Seeded(seed int64) Source {
	return &seededSource{rng: mathrand.New(mathrand.NewSource(seed))}
}

type seededSource struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

func (s *seededSource) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Fixed returns a Source that always yields the same value. Tests use it to
// pin a draw (e.g. the ±1% campaign factor) to a known point.
func Fixed(v float64) Source {
	return fixedSource(v)
}

type fixedSource float64

func (f fixedSource) Float() float64 { return float64(f) }

// Uniform maps a [0,1) draw onto [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float()*(hi-lo)
}
