package ensemble

import "math/rand/v2"

func newRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed))
}

// subsample draws round(ratio*n) distinct rows, at least one.
func subsample(rng *rand.Rand, n int, ratio float64) []int {
	k := int(ratio*float64(n) + 0.5)
	if k < 1 {
		k = 1
	}
	return rng.Perm(n)[:k]
}

// bootstrap draws n rows with replacement.
func bootstrap(rng *rand.Rand, n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = rng.IntN(n)
	}
	return rows
}
