package util

import "math/rand"

func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	src := rand.NewSource(seed)
	return rand.New(src)
}

// Pick returns n items drawn without replacement, in draw order. items is
// not modified.
func Pick[T any](r *rand.Rand, items []T, n int) []T {
	cp := append([]T(nil), items...)
	r.Shuffle(len(cp), func(i, j int) { cp[i], cp[j] = cp[j], cp[i] })
	if n > len(cp) {
		n = len(cp)
	}
	if n < 0 {
		n = 0
	}
	return cp[:n]
}
