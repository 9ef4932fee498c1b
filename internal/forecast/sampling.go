package forecast

// xorshift32 is a tiny deterministic PRNG used for reproducible train/test
// splits. Given the same seed it produces the same sequence on every platform,
// which keeps training metrics comparable across retraining cycles and lets
// tests assert exact permutations. It is not suitable for anything
// security-sensitive.
type xorshift32 struct {
	state uint32
}

// newXorshift32 seeds the generator. A zero seed would lock the generator at
// zero forever, so it is remapped to a fixed non-zero constant.
func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	return &xorshift32{state: seed}
}

// next returns the next 32-bit value.
func (x *xorshift32) next() uint32 {
	v := x.state
	v ^= v << 13
	v ^= v >> 17
	v ^= v << 5
	x.state = v
	return v
}

// intn returns a value in [0, n).
func (x *xorshift32) intn(n int) int {
	return int(x.next() % uint32(n))
}

// ShuffledIndices returns the permutation of [0, n) produced by a
// Fisher-Yates shuffle driven by the seeded generator.
func ShuffledIndices(n int, seed uint32) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := newXorshift32(seed)
	for i := n - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// DefaultTrainFraction is the share of shuffled samples used for training.
const DefaultTrainFraction = 0.8

// TrainTestSplit shuffles [0, n) with the seeded generator and slices the
// permutation into train and test index sets.
func TrainTestSplit(n int, trainFraction float64, seed uint32) (train, test []int) {
	idx := ShuffledIndices(n, seed)
	split := int(float64(n) * trainFraction)
	return idx[:split], idx[split:]
}
