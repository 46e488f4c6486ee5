package data

import "math/rand"

// Blobs generates a linearly separable synthetic dataset: n examples spread
// over the given number of classes, each a dim-length vector clustered
// around its class center with small gaussian noise. Deterministic for a
// seeded rng.
func Blobs(rng *rand.Rand, n, classes, dim int) *Dataset {
	ds := &Dataset{
		Inputs: make([][]float32, n),
		Labels: make([]int64, n),
	}
	for i := 0; i < n; i++ {
		class := i % classes
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64()) * 0.4
		}
		// well-separated center: +4 on the class's own axis
		v[class%dim] += 4
		ds.Inputs[i] = v
		ds.Labels[i] = int64(class)
	}
	return ds
}
