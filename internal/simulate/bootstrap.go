package simulate

import "math/rand"

// sampler draws daily returns from a historical series using the
// stationary block bootstrap: the first draw starts at a uniformly random
// index, and each subsequent draw continues sequentially (wrapping at the
// end) with probability 1-p, or jumps to a new uniformly random index with
// probability p. Sequential runs have expected length 1/p, which preserves
// the short-range autocorrelation an i.i.d. resample destroys.
//
// p = 1 degenerates to plain i.i.d. resampling, which the loss-run
// baseline uses for comparison.
type sampler struct {
	returns []float64
	p       float64
	rng     *rand.Rand
	idx     int
	started bool
}

func newSampler(returns []float64, p float64, rng *rand.Rand) *sampler {
	return &sampler{returns: returns, p: p, rng: rng}
}

func (s *sampler) Next() float64 {
	n := len(s.returns)
	switch {
	case !s.started:
		s.idx = s.rng.Intn(n)
		s.started = true
	case s.rng.Float64() < s.p:
		s.idx = s.rng.Intn(n)
	default:
		s.idx = (s.idx + 1) % n
	}
	return s.returns[s.idx]
}

// reset restarts the sampler for a fresh path without reallocating.
func (s *sampler) reset() {
	s.started = false
}
