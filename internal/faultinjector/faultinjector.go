// Package faultinjector applies configurable probabilistic loss and
// corruption to received acknowledgements, so the engine's retransmission
// path can be exercised deterministically in tests and deliberately
// stressed in production runs.
//
// The PRNG is injected rather than global, following the same pattern
// handler.go uses for its initial-sequence-number generator
// (NewHandler(..., rndSource rand.Source)), so tests get reproducible
// outcomes for a given seed.
package faultinjector

import "math/rand"

// Outcome describes what happened to an inbound ack.
type Outcome int

const (
	Delivered Outcome = iota
	Dropped
	Corrupted
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Corrupted:
		return "corrupted"
	default:
		return "delivered"
	}
}

// Injector independently applies pLoss then pCorrupt to each ack it sees.
type Injector struct {
	pLoss    float64
	pCorrupt float64
	rnd      *rand.Rand
}

// New returns an Injector with the given probabilities, using src for its
// draws. Pass a rand.NewSource(seed) for reproducible tests.
func New(pLoss, pCorrupt float64, src rand.Source) *Injector {
	return &Injector{pLoss: pLoss, pCorrupt: pCorrupt, rnd: rand.New(src)}
}

// Apply draws once for loss and, if not lost, once for corruption, in that
// order, matching the original sender's ack-receive checks.
func (f *Injector) Apply() Outcome {
	if f.pLoss > 0 && f.rnd.Float64() < f.pLoss {
		return Dropped
	}
	if f.pCorrupt > 0 && f.rnd.Float64() < f.pCorrupt {
		return Corrupted
	}
	return Delivered
}
